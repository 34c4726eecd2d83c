// Package filters implements built-in pass-through pipeline stages. A
// Filter receives one Event and returns zero or more resulting Events.
// A scripted-filter runtime is an external collaborator and out of this
// package's scope; these built-ins stand in for what it would do.
//
// Grounded on telegraf's processor plugins' Apply(in ...) []Metric
// pattern, adapted from "transform a batch" to "transform one event,
// return any number of events" to match this daemon's per-event
// streaming model.
package filters

import "github.com/flowlane/telemetryd/metric"

// Filter transforms one Event into zero or more Events. Implementations
// are single-threaded per instance: the pipeline runtime never calls
// Process concurrently on the same Filter value.
type Filter interface {
	// Process handles one event. For an EventTimerFlush, an
	// implementation that wants to emit synthetic events (e.g. a count of
	// events observed since the last tick) must do so by prepending them
	// to the returned slice, with the (possibly unmodified) flush event
	// last, so downstream sinks still see the flush.
	Process(ev metric.Event) []metric.Event
}

// passthrough returns ev unmodified, the default behavior most filters
// fall back to for event kinds they don't act on.
func passthrough(ev metric.Event) []metric.Event {
	return []metric.Event{ev}
}
