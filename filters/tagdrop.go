package filters

import "github.com/flowlane/telemetryd/metric"

// TagDrop removes the named tags from every telemetry metric and log
// line that passes through it.
type TagDrop struct {
	Tags []string
}

// Process implements Filter.
func (f *TagDrop) Process(ev metric.Event) []metric.Event {
	switch ev.Kind {
	case metric.EventTelemetry:
		m := ev.Metric.Clone()
		for _, k := range f.Tags {
			delete(m.Tags, k)
		}
		return []metric.Event{metric.TelemetryEvent(m)}
	case metric.EventLog:
		l := ev.Log.Clone()
		for _, k := range f.Tags {
			delete(l.Tags, k)
		}
		return []metric.Event{metric.LogEvent(l)}
	default:
		return passthrough(ev)
	}
}
