package ff

import (
	"bytes"
	"crypto/sha256"
	"hash"
	"io"

	"github.com/ulikunitz/xz"

	"cloudproto/pkg/cloudproto/framing"
)

// Response is the server's reply to a single Request. It owns the raw
// reply payload plus whatever streaming decoder state Read needs; Data and
// Read share the parsed FileHeader and chunk bytes but keep independent
// read positions, so calling one doesn't disturb the other.
type Response struct {
	rawPayload []byte
	header     FileHeader
	fileData   []byte // chunk bytes: header and trailing CRC stripped

	streamInit bool
	readPos    int
	xzStream   io.Reader
	hasher     hash.Hash
	totalOut   int
}

// ResponseFromPacket classifies a reply packet into either a parsed
// Response or one of the FF-specific errors. A ReplyFail whose payload is
// at least 8 bytes carries a message starting at offset 8; "internal
// error" specifically means the file wasn't found. A ReplyFail shorter
// than 8 bytes, like any other unrecognized kind, is reported as
// BadReplyKindError.
func ResponseFromPacket(pkt framing.Packet) (*Response, error) {
	kind := PacketKindFromByte(pkt.Kind)
	switch {
	case kind.Tag == KindReplyFail && len(pkt.Payload) >= 8:
		msg := string(pkt.Payload[8:])
		if msg == "internal error" {
			return nil, ErrNotFound
		}
		return nil, &ServerError{Msg: msg}
	case kind.Tag == KindReplyOk:
		return responseFromRawPayload(pkt.Payload)
	default:
		return nil, &BadReplyKindError{Got: pkt.Kind}
	}
}

func responseFromRawPayload(payload []byte) (*Response, error) {
	header, err := ParseFileHeader(payload)
	if err != nil {
		return nil, err
	}
	fileData := payload[RespHeaderLen : len(payload)-CRCLen]
	return &Response{rawPayload: payload, header: header, fileData: fileData}, nil
}

// RawPayload returns the still-serialized FF reply payload. Most callers
// want Data or Read instead; this is for callers that want to parse FF
// header fields themselves.
func (r *Response) RawPayload() []byte { return r.rawPayload }

// FileHeader returns the parsed FF header, including the decompressed size
// and hash a caller can check before actually decompressing.
func (r *Response) FileHeader() FileHeader { return r.header }

// Data extracts the requested file's full contents, decompressing if
// necessary, and validates both its length and its SHA-256 against the
// header. It ignores any progress made by Read and always returns the
// entire file.
func (r *Response) Data() ([]byte, error) {
	var full []byte
	switch r.header.CompFormat {
	case CompressionNone:
		full = append([]byte(nil), r.fileData...)
	case CompressionXz:
		xr, err := xz.NewReader(bytes.NewReader(r.fileData))
		if err != nil {
			return nil, err
		}
		full, err = io.ReadAll(xr)
		if err != nil {
			return nil, err
		}
	default:
		return nil, &ParseError{Reason: "unsupported compression format"}
	}

	if len(full) != int(r.header.ChunkEndOff) {
		return nil, &InvalidFinalSizeError{Expected: int(r.header.ChunkEndOff), Actual: len(full)}
	}
	if sum := sha256.Sum256(full); sum != r.header.DataHash {
		return nil, &InvalidHashError{Expected: r.header.DataHash, Actual: sum}
	}
	return full, nil
}

// Read streams the requested file's contents, decompressing on the fly if
// necessary. It runs a SHA-256 over everything read and validates it
// against the header's hash once the advertised length has been reached,
// surfacing a mismatch as the error from the final Read call.
func (r *Response) Read(buf []byte) (int, error) {
	if !r.streamInit {
		r.hasher = sha256.New()
		if r.header.CompFormat == CompressionXz {
			xr, err := xz.NewReader(bytes.NewReader(r.fileData))
			if err != nil {
				return 0, err
			}
			r.xzStream = xr
		}
		r.streamInit = true
	}

	if r.header.CompFormat == CompressionNone {
		remaining := r.fileData[r.readPos:]
		n := copy(buf, remaining)
		r.hasher.Write(remaining[:n])
		r.readPos += n
		r.totalOut += n
		if n == 0 {
			return 0, io.EOF
		}
		if r.readPos == len(r.fileData) {
			if err := r.checkFinal(); err != nil {
				return n, err
			}
		}
		return n, nil
	}

	n, err := r.xzStream.Read(buf)
	r.hasher.Write(buf[:n])
	r.totalOut += n
	if r.totalOut > int(r.header.ChunkEndOff) {
		return n, &InvalidFinalSizeError{Expected: int(r.header.ChunkEndOff), Actual: r.totalOut}
	}
	if n != 0 && r.totalOut == int(r.header.ChunkEndOff) {
		if verr := r.checkHash(); verr != nil {
			return n, verr
		}
	}
	return n, err
}

func (r *Response) checkFinal() error {
	if r.totalOut != int(r.header.ChunkEndOff) {
		return &InvalidFinalSizeError{Expected: int(r.header.ChunkEndOff), Actual: r.totalOut}
	}
	return r.checkHash()
}

func (r *Response) checkHash() error {
	var sum [32]byte
	copy(sum[:], r.hasher.Sum(nil))
	if sum != r.header.DataHash {
		return &InvalidHashError{Expected: r.header.DataHash, Actual: sum}
	}
	return nil
}
