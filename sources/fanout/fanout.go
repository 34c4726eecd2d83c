// Package fanout is the shared publish helper every source uses to push
// one event onto all of its downstream channels: clone for every
// channel but the last, then move the original into the last, matching
// the one-clone-saved fan-out rule every source shares.
package fanout

import (
	"fmt"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/metric"
)

// Publish sends ev to every Sender in senders, cloning for all but the
// last, so N channels cost N-1 clones rather than N. It
// is not a correctness requirement which Sender gets the original; it
// only matters that every Sender gets an equivalent, independently
// owned copy. Publish stops and returns the first send error.
func Publish(senders []*hopper.Sender, ev metric.Event) error {
	if len(senders) == 0 {
		return nil
	}
	for i := 0; i < len(senders)-1; i++ {
		if err := senders[i].Send(ev.Clone()); err != nil {
			return fmt.Errorf("fanout: send to channel %d: %w", i, err)
		}
	}
	last := len(senders) - 1
	if err := senders[last].Send(ev); err != nil {
		return fmt.Errorf("fanout: send to channel %d: %w", last, err)
	}
	return nil
}
