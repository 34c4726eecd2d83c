package hopper

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowlane/telemetryd/metric"
)

// Sender is one producer handle onto a durable channel. A Sender is safe
// for concurrent use, but the intended pattern for many producer
// goroutines is one Clone per goroutine: Clone shares the channel's global
// sequence counter so every clone rolls onto the same next segment in
// lock-step, rather than contending on one file handle.
type Sender struct {
	mu  sync.Mutex
	root string
	seq  int64
	fp   *os.File
	bytesWritten int64
	maxBytes     int64
	global       *int64
}

func newSender(root string, maxBytes int64, global *int64, seq int64) (*Sender, error) {
	fp, err := openForAppend(segmentPath(root, seq))
	if err != nil {
		return nil, err
	}
	info, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("hopper: stat segment: %w", err)
	}
	return &Sender{
		root:         root,
		seq:          seq,
		fp:           fp,
		bytesWritten: info.Size(),
		maxBytes:     maxBytes,
		global:       global,
	}, nil
}

// Clone returns a new Sender over the same channel, joined to the current
// global segment (which may have advanced past this Sender's own segment
// since NewChannel/Clone was called).
func (s *Sender) Clone() (*Sender, error) {
	seq := atomic.LoadInt64(s.global)
	return newSender(s.root, s.maxBytes, s.global, seq)
}

// Send encodes ev and appends it to the channel, rolling onto a new segment
// first if another producer has already sealed this one, and sealing this
// segment itself once bytesWritten crosses maxBytes.
func (s *Sender) Send(ev metric.Event) error {
	payload, err := ev.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("hopper: encode event: %w", err)
	}
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if global := atomic.LoadInt64(s.global); global != s.seq {
		if err := s.reopen(global); err != nil {
			return err
		}
	}

	frame := encodeLength(uint32(len(payload)))
	if _, err := s.fp.Write(frame[:]); err != nil {
		return fmt.Errorf("%w: write length prefix: %v", ErrIOFatal, err)
	}
	if _, err := s.fp.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %v", ErrIOFatal, err)
	}
	s.bytesWritten += int64(len(frame)) + int64(len(payload))

	if s.bytesWritten > s.maxBytes {
		if err := s.seal(); err != nil {
			return err
		}
	}
	return nil
}

// reopen switches this Sender onto segment seq, which another clone has
// already created (or which NewChannel discovered at startup).
func (s *Sender) reopen(seq int64) error {
	if s.fp != nil {
		s.fp.Close()
	}
	fp, err := openForAppend(segmentPath(s.root, seq))
	if err != nil {
		return err
	}
	info, err := fp.Stat()
	if err != nil {
		fp.Close()
		return fmt.Errorf("hopper: stat segment: %w", err)
	}
	s.seq = seq
	s.fp = fp
	s.bytesWritten = info.Size()
	return nil
}

// seal chmods the current segment read-only, signalling the Receiver that
// it is complete and safe to unlink once drained, then advances the shared
// global sequence number and opens the next segment.
func (s *Sender) seal() error {
	if err := s.fp.Chmod(0o444); err != nil {
		return fmt.Errorf("%w: seal segment: %v", ErrIOFatal, err)
	}
	s.fp.Close()
	next := atomic.AddInt64(s.global, 1)
	return s.reopen(next)
}

// Close releases this Sender's file handle without affecting other clones
// or the Receiver.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fp.Close()
}

// openForAppend retries file open a bounded number of times with a short
// delay; on most platforms opening a path whose parent directory exists
// cannot fail transiently, but a sibling seal/rename racing us can produce
// a momentary ENOENT, and the reference channel treats this as
// retry-worthy rather than fatal.
func openForAppend(path string) (*os.File, error) {
	var lastErr error
	for i := 0; i < maxOpenRetries; i++ {
		fp, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			return fp, nil
		}
		lastErr = err
		time.Sleep(openRetryDelay)
	}
	return nil, fmt.Errorf("%w: open %s: %v", ErrIOFatal, path, lastErr)
}
