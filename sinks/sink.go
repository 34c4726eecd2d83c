// Package sinks defines the Sink contract every downstream delivery
// target implements, plus the shared default main loop reference sinks
// all run under.
package sinks

import (
	"context"
	"fmt"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/metric"
)

// Valve is a sink's admission-control signal. Open means the sink can
// keep absorbing events; Closed is an advisory hint that upstream
// filters may drop or buffer rather than send more.
type Valve int

const (
	// Open is the default state: the sink accepts events normally.
	Open Valve = iota
	// Closed signals the sink's internal buffer is at its watermark.
	Closed
)

func (v Valve) String() string {
	if v == Closed {
		return "closed"
	}
	return "open"
}

// Sink is the contract every delivery target implements. Deliver and
// DeliverLine ingest one event each, typically folding it into a local
// buckets.Buckets; Flush emits all buffered aggregated state to the
// external system and resets local state. ValveState is consulted by
// upstream filters as a backpressure hint. Flush must be idempotent
// when called with nothing buffered.
type Sink interface {
	Deliver(m *metric.Metric)
	DeliverLine(l *metric.LogLine)
	Flush()
	ValveState() Valve
}

// Run is the default sink main loop: repeatedly call recv.Next() and
// dispatch by event kind. It returns nil when ctx is cancelled, or a
// wrapped error when recv.Next() reports an IoFatal condition.
//
// Cancellation is checked between events, not by preempting a blocked
// Next() call: in practice Next() returns at least once per flush tick
// (the flush timer keeps every channel non-idle, and broadcasts one last
// TimerFlush when its own context is cancelled), so shutdown latency is
// bounded by the flush interval rather than unbounded. ctx may be
// nil, in which case Run loops until Next() errors (the zero-value,
// run-forever contract).
func Run(ctx context.Context, s Sink, recv *hopper.Receiver) error {
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
			return fmt.Errorf("sinks: receive loop: %w", err)
		}
		dispatch(s, *ev)
	}
}

func dispatch(s Sink, ev metric.Event) {
	switch ev.Kind {
	case metric.EventTelemetry:
		s.Deliver(ev.Metric)
	case metric.EventLog:
		s.DeliverLine(ev.Log)
	case metric.EventTimerFlush:
		s.Flush()
	}
}
