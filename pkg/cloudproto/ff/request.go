package ff

import (
	"encoding/binary"
	"encoding/hex"
)

// CompressionFormat selects whether the server should reply with the raw
// file bytes or an XZ-compressed stream. Even when a request accepts
// compression, the server may still reply uncompressed if the requested
// file is itself an archive on disk.
type CompressionFormat uint16

const (
	CompressionNone CompressionFormat = 0
	CompressionXz   CompressionFormat = 1
)

// DefaultCIDHex is not a structurally valid CID, but FF accepts any value,
// including all zeroes. DefaultAIDHex is likewise accepted unconditionally.
const (
	DefaultCIDHex = "00000000000000000000000000000000"
	DefaultAIDHex = "00000000000000000000000000000000"
)

// Request asks an FF server for a single file by path. The server accepts
// any CID/AID, so in practice no authentication is required.
type Request struct {
	CID  [16]byte
	AID  [16]byte
	// Compression indicates the format this client can accept. Only
	// offset 0 is supported: large files spanning multiple chunks would
	// need a nonzero offset for subsequent requests, which this package
	// does not implement.
	Compression CompressionFormat
	RemotePath  string
	Offset      uint32
}

// NewSimpleRequest builds a Request for remotePath using the default
// CID/AID and no compression.
func NewSimpleRequest(remotePath string) Request {
	var cid, aid [16]byte
	copy(cid[:], mustDecodeHex(DefaultCIDHex))
	copy(aid[:], mustDecodeHex(DefaultAIDHex))
	return Request{CID: cid, AID: aid, Compression: CompressionNone, RemotePath: remotePath}
}

// NewRequest builds a Request with explicit cid/aid/compression.
func NewRequest(cid, aid [16]byte, compression CompressionFormat, remotePath string) Request {
	return Request{CID: cid, AID: aid, Compression: compression, RemotePath: remotePath}
}

// Encode serializes r as the FF GetFileRequest payload: cid || aid ||
// 0x00000008 (a constant whose meaning hasn't been identified) || offset ||
// compression || remote_path (no length prefix; extends to end of payload).
func (r Request) Encode() []byte {
	buf := make([]byte, 0, 16+16+4+4+2+len(r.RemotePath))
	buf = append(buf, r.CID[:]...)
	buf = append(buf, r.AID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, 8)
	buf = binary.BigEndian.AppendUint32(buf, r.Offset)
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Compression))
	buf = append(buf, r.RemotePath...)
	return buf
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
