package hopper

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flowlane/telemetryd/metric"
)

// Receiver is the single consumer of a durable channel. Unlike Sender, a
// channel has exactly one live Receiver; fan-out to multiple consumers is
// the pipeline's job, built on top of one Receiver per downstream stage.
type Receiver struct {
	root string
	seq  int64
	fp   *os.File
}

func newReceiver(root string, seq int64) (*Receiver, error) {
	path := segmentPath(root, seq)
	fp, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hopper: open segment for read: %w", err)
	}
	if _, err := fp.Seek(0, io.SeekEnd); err != nil {
		fp.Close()
		return nil, fmt.Errorf("hopper: seek segment: %w", err)
	}
	return &Receiver{root: root, seq: seq, fp: fp}, nil
}

// Next blocks until the next event is available, returning it once read.
// It only returns an error for a genuinely unrecoverable condition
// (payload cut short in a sealed segment, decode failure, permission
// error); ordinary not-written-yet EOF on the active segment, including a
// frame only partly written so far, is retried internally.
func (r *Receiver) Next() (*metric.Event, error) {
	for {
		var frame [4]byte
		if k, err := io.ReadFull(r.fp, frame[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if _, err := r.fp.Seek(-int64(k), io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("%w: rewind segment: %v", ErrIOFatal, err)
				}
				advanced, aerr := r.maybeAdvance()
				if aerr != nil {
					return nil, aerr
				}
				if advanced {
					continue
				}
				time.Sleep(pollInterval)
				continue
			}
			return nil, fmt.Errorf("%w: read length prefix: %v", ErrIOFatal, err)
		}

		n := decodeLength(frame)
		if n > MaxPayloadBytes {
			return nil, fmt.Errorf("%w: frame declares %d bytes", ErrPayloadTooLarge, n)
		}

		payload := make([]byte, n)
		if k, err := io.ReadFull(r.fp, payload); err != nil {
			// On a still-writable segment the producer has not finished this
			// frame yet: rewind to its length prefix and wait.
			short := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
			if info, serr := r.fp.Stat(); short && serr == nil && info.Mode().Perm()&0o200 != 0 {
				if _, err := r.fp.Seek(-int64(len(frame)+k), io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("%w: rewind segment: %v", ErrIOFatal, err)
				}
				time.Sleep(pollInterval)
				continue
			}
			return nil, fmt.Errorf("%w: truncated payload: %v", ErrIOFatal, err)
		}

		ev, _, err := metric.UnmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decode event: %v", ErrIOFatal, err)
		}
		return &ev, nil
	}
}

// maybeAdvance checks whether the current segment has been sealed (made
// read-only) by its Sender. If so, it unlinks the drained segment and
// opens the next one, returning true. If the segment is still open for
// writing, it returns false so the caller can retry after a short sleep.
func (r *Receiver) maybeAdvance() (bool, error) {
	info, err := r.fp.Stat()
	if err != nil {
		return false, fmt.Errorf("%w: stat segment: %v", ErrIOFatal, err)
	}
	if info.Mode().Perm()&0o200 != 0 {
		// Still owner-writable: the producer hasn't sealed it yet.
		return false, nil
	}

	oldPath := segmentPath(r.root, r.seq)
	r.fp.Close()
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("%w: unlink drained segment: %v", ErrIOFatal, err)
	}

	r.seq++
	fp, err := openNextSegment(segmentPath(r.root, r.seq))
	if err != nil {
		return false, err
	}
	r.fp = fp
	return true, nil
}

// openNextSegment waits for the sender to actually create the next
// numbered file; a seal can be observed microseconds before the create of
// its successor lands on disk.
func openNextSegment(path string) (*os.File, error) {
	for i := 0; i < maxOpenRetries; i++ {
		fp, err := os.OpenFile(path, os.O_RDONLY, 0o644)
		if err == nil {
			return fp, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: open %s: %v", ErrIOFatal, path, err)
		}
		time.Sleep(openRetryDelay)
	}
	return nil, fmt.Errorf("%w: segment %s never appeared", ErrIOFatal, path)
}

// Close releases the Receiver's file handle.
func (r *Receiver) Close() error {
	return r.fp.Close()
}
