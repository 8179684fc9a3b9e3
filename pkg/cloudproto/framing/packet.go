package framing

import "encoding/binary"

// CommonHeaderLen is the fixed size of the CP common header: magic (1) +
// kind (1) + version (2) + total_length (4).
const CommonHeaderLen = 8

// Packet is the common framing structure shared by every CP service. Kind
// is left as a raw byte here: the framing layer has no notion of per-service
// packet kinds, only the higher-level et/ff packages interpret it.
type Packet struct {
	Magic   Magic
	Kind    uint8
	Version Version
	Payload []byte
}

// Encode serializes p into a single complete frame (header + payload). It
// always succeeds.
func (p Packet) Encode() []byte {
	buf := make([]byte, CommonHeaderLen+len(p.Payload))
	buf[0] = p.Magic.Byte()
	buf[1] = p.Kind
	binary.BigEndian.PutUint16(buf[2:4], p.Version.Uint16())
	binary.BigEndian.PutUint32(buf[4:8], uint32(CommonHeaderLen+len(p.Payload)))
	copy(buf[CommonHeaderLen:], p.Payload)
	return buf
}

// Decode parses one complete length-delimited record (as produced by the
// framed socket's read half, header included) into a Packet. frame must be
// exactly one frame: a header plus whatever payload the header announces.
func Decode(frame []byte) (Packet, error) {
	if len(frame) < CommonHeaderLen {
		return Packet{}, &PayloadTooShortError{Got: len(frame), Min: CommonHeaderLen}
	}
	magic := MagicFromByte(frame[0])
	kind := frame[1]
	version := VersionFromUint16(binary.BigEndian.Uint16(frame[2:4]))
	totalLen := int(binary.BigEndian.Uint32(frame[4:8]))

	announcedPayload := totalLen - CommonHeaderLen
	actualPayload := len(frame) - CommonHeaderLen
	if announcedPayload != actualPayload {
		return Packet{}, &BadFrameSizeError{Got: actualPayload, Announced: announcedPayload}
	}

	payload := make([]byte, actualPayload)
	copy(payload, frame[CommonHeaderLen:])
	return Packet{Magic: magic, Kind: kind, Version: version, Payload: payload}, nil
}
