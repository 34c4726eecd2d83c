// Package framing is the length-delimited frame codec the native sink
// and native source share for their TCP wire protocol: a 4-byte
// big-endian length prefix followed by that many bytes of payload. This
// is a conventional framing, distinct from the durable channel's
// historical non-standard byte permutation (see hopper/wire.go) — the
// network wire format has no compatibility constraint forcing that
// quirk, so it uses ordinary big-endian instead.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameBytes caps a single frame so a corrupt or hostile length
// prefix cannot make a reader allocate unboundedly.
const MaxFrameBytes = 16 << 20

// ErrFrameTooLarge is returned by ReadFrame when a frame's declared
// length exceeds MaxFrameBytes.
var ErrFrameTooLarge = errors.New("framing: frame exceeds max size")

// WriteFrame writes payload to w as one length-delimited frame.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("framing: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("framing: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-delimited frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("framing: truncated frame: %w", err)
	}
	return payload, nil
}
