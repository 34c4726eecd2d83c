package pipeline

import (
	"context"
	"fmt"

	"github.com/flowlane/telemetryd/filters"
	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// runFilter is a filter's main loop: pull one event at a time from recv,
// run it through f, and fan out every resulting event (zero or more) to
// downstream. Cancellation is checked between events, mirroring
// sinks.Run's rationale — recv.Next() itself has no context parameter.
func runFilter(ctx context.Context, recv *hopper.Receiver, f filters.Filter, downstream []*hopper.Sender) error {
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}

		ev, err := recv.Next()
		if err != nil {
			return fmt.Errorf("pipeline: filter receive loop: %w", err)
		}
		for _, out := range f.Process(*ev) {
			if err := fanout.Publish(downstream, out); err != nil {
				return fmt.Errorf("pipeline: filter publish: %w", err)
			}
		}
	}
}
