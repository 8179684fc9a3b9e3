package et

import "encoding/hex"

// DefaultUnk0Hex and DefaultBootIDHex are arbitrary machine-specific values
// observed on an isolated test VM. unk0 has never been seen to change; the
// returned AgentID depends on it but accepts zeroes too. bootid is normally
// /proc/sys/kernel/random/boot_id, substituted here for callers that don't
// have a real machine identity to offer.
const (
	DefaultUnk0Hex   = "54645dacc392cb43b4803094141e0087"
	DefaultBootIDHex = "6c959680d4945d45924301a720debc88"
)

// ConnectInfoLen is the wire size of ConnectInfo: 4 fields of 16 bytes plus
// an 8-byte pt field.
const ConnectInfoLen = 4*16 + 8

// ConnectInfo carries the client's identity in the ET handshake. cid must
// belong to an active customer for the server to accept the connection.
type ConnectInfo struct {
	CID    [16]byte
	Unk0   [16]byte
	AID    [16]byte
	BootID [16]byte
	PT     [8]byte
}

// NewSimpleConnectInfo builds a ConnectInfo from just a customer ID, using
// the default values observed from the reference client for everything
// else.
func NewSimpleConnectInfo(cid [16]byte) ConnectInfo {
	var unk0, bootID [16]byte
	copy(unk0[:], mustDecodeHex(DefaultUnk0Hex))
	copy(bootID[:], mustDecodeHex(DefaultBootIDHex))
	return ConnectInfo{CID: cid, Unk0: unk0, BootID: bootID}
}

// NewConnectInfo builds a ConnectInfo from explicit field values.
func NewConnectInfo(cid, unk0, aid, bootID [16]byte, pt [8]byte) ConnectInfo {
	return ConnectInfo{CID: cid, Unk0: unk0, AID: aid, BootID: bootID, PT: pt}
}

// Encode serializes info as the ConnectInfoLen-byte (72) ET Connect payload, fields in
// declared order: cid, unk0, aid, bootid, pt.
func (info ConnectInfo) Encode() []byte {
	buf := make([]byte, 0, ConnectInfoLen)
	buf = append(buf, info.CID[:]...)
	buf = append(buf, info.Unk0[:]...)
	buf = append(buf, info.AID[:]...)
	buf = append(buf, info.BootID[:]...)
	buf = append(buf, info.PT[:]...)
	return buf
}

// DecodeConnectInfo parses a 72-byte ET Connect payload. The caller must
// have already checked the length; this function panics on a short slice
// the same way a slice-bounds error would, since acceptor.Listen validates
// the length before calling it.
func DecodeConnectInfo(payload []byte) ConnectInfo {
	var info ConnectInfo
	copy(info.CID[:], payload[0:16])
	copy(info.Unk0[:], payload[16:32])
	copy(info.AID[:], payload[32:48])
	copy(info.BootID[:], payload[48:64])
	copy(info.PT[:], payload[64:72])
	return info
}

// AgentIDStatus tells a connecting client whether the server kept or
// reassigned its AgentID.
type AgentIDStatus uint8

const (
	AgentIDUnchanged AgentIDStatus = 1
	AgentIDChanged   AgentIDStatus = 2
)

// ConnectResponse is the server's reply to an ET Connect, 17 bytes on the
// wire: a 1-byte status then a 16-byte AgentID.
type ConnectResponse struct {
	AgentIDStatus AgentIDStatus
	AID           [16]byte
}

// Encode serializes r as the 17-byte ET ConnectionEstablished payload.
func (r ConnectResponse) Encode() []byte {
	buf := make([]byte, 0, 17)
	buf = append(buf, byte(r.AgentIDStatus))
	buf = append(buf, r.AID[:]...)
	return buf
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
