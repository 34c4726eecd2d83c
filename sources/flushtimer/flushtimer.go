// Package flushtimer implements the flush-tick logical source: a single
// goroutine that emits a TimerFlush event on every outgoing channel at a
// fixed cadence, driving bucket reset and sink emission throughout the
// pipeline.
package flushtimer

import (
	"context"
	"time"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// FlushTimer broadcasts a TimerFlush event to every configured channel
// on each tick.
type FlushTimer struct {
	interval time.Duration
	senders  []*hopper.Sender
	log      logger.Logger
}

// New returns a FlushTimer broadcasting to senders every interval.
func New(interval time.Duration, senders []*hopper.Sender, log logger.Logger) *FlushTimer {
	return &FlushTimer{interval: interval, senders: senders, log: log}
}

// Run blocks, emitting a TimerFlush on every tick until ctx is done.
// Flush is best-effort: a backlogged channel just queues the tick like
// any other event, it is never dropped. When ctx is done, Run broadcasts
// one final TimerFlush before returning, so filters and sinks waiting in
// Receiver.Next() wake up and observe the cancellation.
func (f *FlushTimer) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := fanout.Publish(f.senders, metric.FlushEvent()); err != nil {
				f.log.Errorf("flushtimer: final broadcast: %v", err)
			}
			return nil
		case <-ticker.C:
			if err := fanout.Publish(f.senders, metric.FlushEvent()); err != nil {
				f.log.Errorf("flushtimer: broadcast: %v", err)
			}
		}
	}
}
