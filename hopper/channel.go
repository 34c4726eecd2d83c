package hopper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// NewChannel creates (or reopens) a durable channel rooted at
// dataDir/name. It returns a Sender positioned at the tail of the highest
// existing segment and a Receiver also starting from that same segment —
// a fresh channel has no backlog to replay, and a reopened one intentionally
// does not replay whatever was already drained or left behind by a prior
// process, so events left unconsumed at shutdown are not delivered.
//
// maxBytesPerFile governs rollover; pass 0 to use DefaultMaxBytesPerFile.
func NewChannel(name, dataDir string, maxBytesPerFile int64) (*Sender, *Receiver, error) {
	if maxBytesPerFile <= 0 {
		maxBytesPerFile = DefaultMaxBytesPerFile
	}
	root := filepath.Join(dataDir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("hopper: create channel dir: %w", err)
	}

	seq, err := highestSeq(root)
	if err != nil {
		return nil, nil, fmt.Errorf("hopper: scan channel dir: %w", err)
	}

	global := new(int64)
	atomic.StoreInt64(global, seq)

	snd, err := newSender(root, maxBytesPerFile, global, seq)
	if err != nil {
		return nil, nil, err
	}
	rcv, err := newReceiver(root, seq)
	if err != nil {
		snd.Close()
		return nil, nil, err
	}
	return snd, rcv, nil
}

// highestSeq returns the largest integer-named file in root, or 0 if root
// has no such files (a brand-new channel starts at segment 0).
func highestSeq(root string) (int64, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}
	max := int64(-1)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if max < 0 {
		return 0, nil
	}
	return max, nil
}

func segmentPath(root string, seq int64) string {
	return filepath.Join(root, strconv.FormatInt(seq, 10))
}
