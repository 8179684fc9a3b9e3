package ff

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the server's ReplyFail message is "internal
// error", which in practice indicates the requested file doesn't exist.
// It's the only internal error message observed so far.
var ErrNotFound = errors.New("ff: file not found")

// ServerError wraps any ReplyFail message other than "internal error".
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string { return "ff: server error: " + e.Msg }

// BadReplyKindError is returned when a reply packet's kind is neither
// ReplyOk nor a ReplyFail with at least 8 bytes of payload.
type BadReplyKindError struct {
	Got uint8
}

func (e *BadReplyKindError) Error() string {
	return fmt.Sprintf("ff: unexpected reply packet kind %#x", e.Got)
}

// InvalidHashError is returned when the fetched data's SHA-256 doesn't
// match the hash the file header advertised.
type InvalidHashError struct {
	Expected, Actual [32]byte
}

func (e *InvalidHashError) Error() string {
	return fmt.Sprintf("ff: data hash mismatch: expected %s, got %s",
		hex.EncodeToString(e.Expected[:]), hex.EncodeToString(e.Actual[:]))
}

// InvalidFinalSizeError is returned when the decompressed data's length
// doesn't match the header's advertised size.
type InvalidFinalSizeError struct {
	Expected, Actual int
}

func (e *InvalidFinalSizeError) Error() string {
	return fmt.Sprintf("ff: expected %#x bytes of decompressed data, got %#x", e.Expected, e.Actual)
}
