package hopper

import (
	"errors"
	"time"
)

// ErrPayloadTooLarge is returned by Send when an encoded event exceeds
// MaxPayloadBytes, and by Receiver.Next when a frame's declared length does.
var ErrPayloadTooLarge = errors.New("hopper: payload exceeds max frame size")

// ErrIOFatal wraps an unrecoverable error encountered while reading or
// writing a segment file (truncated frame, permission failure, decode
// failure). It is not returned for ordinary EOF-on-active-segment, which
// Next retries instead of failing on.
var ErrIOFatal = errors.New("hopper: fatal queue I/O error")

const (
	// MaxPayloadBytes caps a single encoded event. It exists so one
	// pathological payload cannot make the receiver allocate unboundedly
	// from a corrupted or adversarial length prefix.
	MaxPayloadBytes = 1 << 20

	// DefaultMaxBytesPerFile is the rollover threshold used when a channel
	// is opened without an explicit override.
	DefaultMaxBytesPerFile int64 = 10 << 20

	pollInterval   = 10 * time.Millisecond
	openRetryDelay = 5 * time.Millisecond
	maxOpenRetries = 200
)
