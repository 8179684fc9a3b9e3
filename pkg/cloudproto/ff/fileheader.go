package ff

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// RespHeaderLen is the size of the header prefixing an FF ReplyOk payload.
// This is not the on-disk LFO file header format, only the header CP
// itself prepends to a reply.
const RespHeaderLen = 0x2A

// CRCLen is the size of the trailing CRC32 appended after the header and
// file data in an FF ReplyOk payload.
const CRCLen = 4

// FileHeader is CP's own framing around a fetched file: what offset range
// it covers, its total decompressed size, its final SHA-256, and how it's
// compressed on the wire.
type FileHeader struct {
	ChunkStartOff uint32
	ChunkEndOff   uint32
	DataHash      [32]byte
	CompFormat    CompressionFormat
}

// ParseError reports why an FF ReplyOk payload failed to parse.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "FF reply parse error: " + e.Reason }

// ParseFileHeader parses the fixed-size header and validates the CRC32
// over the file data (payload bytes between the header and the trailing
// CRC). payload is the full ReplyOk payload, header included and trailing
// CRC included. It assumes a single-chunk download: chunked/range replies
// that continue a previous header aren't supported.
func ParseFileHeader(payload []byte) (FileHeader, error) {
	if len(payload) < RespHeaderLen+CRCLen {
		return FileHeader{}, &ParseError{Reason: "FF OK header too small"}
	}
	header := payload[:RespHeaderLen]
	fileData := payload[RespHeaderLen:] // includes trailing CRC

	chunkStartOff := binary.BigEndian.Uint32(header[0:4])
	chunkEndOff := binary.BigEndian.Uint32(header[4:8])
	var dataHash [32]byte
	copy(dataHash[:], header[8:40])
	compFormat := CompressionFormat(binary.BigEndian.Uint16(header[40:42]))
	switch compFormat {
	case CompressionNone, CompressionXz:
	default:
		return FileHeader{}, &ParseError{Reason: fmt.Sprintf("unsupported comp_format %d", compFormat)}
	}

	if chunkStartOff > chunkEndOff {
		return FileHeader{}, &ParseError{Reason: fmt.Sprintf(
			"FF response start offset %#x is past end offset %#x", chunkStartOff, chunkEndOff)}
	}
	if chunkStartOff != 0 {
		return FileHeader{}, &ParseError{Reason: "unexpected non-zero offset in FF response"}
	}

	lenWithoutCRC := len(fileData) - CRCLen
	chunkSize := chunkEndOff - chunkStartOff
	if compFormat == CompressionNone && chunkSize != uint32(lenWithoutCRC) {
		return FileHeader{}, &ParseError{Reason: fmt.Sprintf(
			"expected %#x bytes of FF file data, but uncompressed payload is %#x bytes", chunkSize, lenWithoutCRC)}
	}

	expectedCRC := binary.BigEndian.Uint32(fileData[lenWithoutCRC:])
	crc := crc32.ChecksumIEEE(fileData[:lenWithoutCRC])
	if crc != expectedCRC {
		return FileHeader{}, &ParseError{Reason: fmt.Sprintf(
			"expected CRC %#x, but computed %#x", expectedCRC, crc)}
	}

	return FileHeader{
		ChunkStartOff: chunkStartOff,
		ChunkEndOff:   chunkEndOff,
		DataHash:      dataHash,
		CompFormat:    compFormat,
	}, nil
}
