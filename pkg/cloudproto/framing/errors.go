// Package framing implements the CLOUDPROTO (CP) record layer: the common
// 8-byte packet header, the magic/version tagged unions shared by every
// higher-level service, and the length-delimited socket that turns a
// bidirectional byte stream into a sequence of decoded packets.
package framing

import "fmt"

// BadMagicError is returned when a packet's magic byte doesn't match what
// the caller expected (e.g. an ET handshake reader seeing an LFO packet).
type BadMagicError struct {
	Got, Want Magic
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("bad cloudproto magic %#x, expected %#x", e.Got.Byte(), e.Want.Byte())
}

// BadVersionError is returned when a packet's version field doesn't match
// what the caller expected at a given point in a handshake.
type BadVersionError struct {
	Got, Want Version
}

func (e *BadVersionError) Error() string {
	return fmt.Sprintf("bad cloudproto version %#x, expected %#x", e.Got.Uint16(), e.Want.Uint16())
}

// BadFrameSizeError is returned when a decoded frame's announced total
// length disagrees with the number of bytes actually present.
type BadFrameSizeError struct {
	Got, Announced int
}

func (e *BadFrameSizeError) Error() string {
	return fmt.Sprintf("bad cloudproto payload size %#x, header announced %#x", e.Got, e.Announced)
}

// PayloadTooShortError is returned when a packet payload is shorter than
// the minimum a higher-level decoder requires.
type PayloadTooShortError struct {
	Got, Min int
}

func (e *PayloadTooShortError) Error() string {
	return fmt.Sprintf("payload too short: got %#x bytes, need at least %#x", e.Got, e.Min)
}

// PayloadInvalidSizeError is returned when a packet payload's length must
// be exact (e.g. the ET Connect payload) but isn't.
type PayloadInvalidSizeError struct {
	Got, Want int
}

func (e *PayloadInvalidSizeError) Error() string {
	return fmt.Sprintf("invalid payload size: got %#x bytes, want exactly %#x", e.Got, e.Want)
}

// WrongPacketKindError is returned when a handshake reply carries a kind
// other than the one expected at that step.
type WrongPacketKindError struct {
	Got, Want uint8
}

func (e *WrongPacketKindError) Error() string {
	return fmt.Sprintf("received packet kind %#x, expected %#x", e.Got, e.Want)
}

// ClosedByPeerError is returned when the peer closes the transport before
// a handshake packet arrives.
type ClosedByPeerError struct {
	Msg string
}

func (e *ClosedByPeerError) Error() string { return e.Msg }
