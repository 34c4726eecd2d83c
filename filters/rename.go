package filters

import "github.com/flowlane/telemetryd/metric"

// Rename renames a telemetry metric matching From to To, leaving every
// other event (including log lines and flushes) untouched.
type Rename struct {
	From string
	To   string
}

// Process implements Filter.
func (r *Rename) Process(ev metric.Event) []metric.Event {
	if ev.Kind != metric.EventTelemetry || ev.Metric.Name != r.From {
		return passthrough(ev)
	}
	m := ev.Metric.Clone()
	m.Name = r.To
	return []metric.Event{metric.TelemetryEvent(m)}
}
