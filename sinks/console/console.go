// Package console implements the stdout sink: it accumulates delivered
// metrics into a buckets.Buckets and, on each flush tick, prints the
// current window's counters/gauges/raws/delta-gauges and quantile
// summaries for timers and histograms, then resets.
package console

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flowlane/telemetryd/buckets"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/quantile"
	"github.com/flowlane/telemetryd/sinks"
)

// Console is the stdout sink. DeliverLine is intentionally a no-op: the
// reference console sink never printed tailed log lines, only metrics.
type Console struct {
	aggrs *buckets.Buckets
	out   io.Writer
	now   func() time.Time
}

// New returns a Console aggregating into a bucket of the given width in
// seconds, with gauge/raw carry-forward disabled (every flush starts
// from a clean window, matching the reference sink).
func New(widthSeconds int64) *Console {
	return &Console{
		aggrs: buckets.New(widthSeconds, false),
		out:   os.Stdout,
		now:   time.Now,
	}
}

// Deliver folds m into the current window.
func (c *Console) Deliver(m *metric.Metric) {
	c.aggrs.Add(m)
}

// DeliverLine is a no-op; the console sink does not print log lines.
func (c *Console) DeliverLine(_ *metric.LogLine) {}

// ValveState is always Open: the console sink has no backpressure to
// signal, it never blocks on an external system.
func (c *Console) ValveState() sinks.Valve { return sinks.Open }

func (c *Console) printLine(key string, value float64) {
	fmt.Fprintf(c.out, "    %s: %v\n", key, value)
}

var quantileLabels = []struct {
	label string
	q     float64
}{
	{"min", 0.0},
	{"max", 1.0},
	{"50", 0.5},
	{"90", 0.90},
	{"99", 0.99},
	{"999", 0.999},
}

func (c *Console) printSummary(key string, s *quantile.Summary) {
	for _, ql := range quantileLabels {
		var v float64
		switch ql.q {
		case 0.0:
			v = s.Min()
		case 1.0:
			v = s.Max()
		default:
			v, _ = s.Query(ql.q)
		}
		fmt.Fprintf(c.out, "    %s: %s %v\n", key, ql.label, v)
	}
}

// Flush prints the current window to stdout and resets the aggregator.
// It is safe to call with nothing buffered.
func (c *Console) Flush() {
	fmt.Fprintf(c.out, "Flushing metrics: %s\n", c.now().UTC().Format(time.RFC3339))

	fmt.Fprintln(c.out, "  counters:")
	for _, p := range c.aggrs.Counters() {
		c.printLine(p.Name, p.Value)
	}

	fmt.Fprintln(c.out, "  gauges:")
	for _, p := range c.aggrs.Gauges() {
		c.printLine(p.Name, p.Value)
	}

	fmt.Fprintln(c.out, "  delta gauges:")
	for _, p := range c.aggrs.DeltaGauges() {
		c.printLine(p.Name, p.Value)
	}

	fmt.Fprintln(c.out, "  raws:")
	for _, p := range c.aggrs.Raws() {
		c.printLine(p.Name, p.Value)
	}

	fmt.Fprintln(c.out, "  histograms:")
	for _, p := range c.aggrs.Histograms() {
		c.printSummary(p.Name, p.Summary)
	}

	fmt.Fprintln(c.out, "  timers:")
	for _, p := range c.aggrs.Timers() {
		c.printSummary(p.Name, p.Summary)
	}

	c.aggrs.Reset()
}
