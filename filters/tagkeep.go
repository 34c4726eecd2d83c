package filters

import "github.com/flowlane/telemetryd/metric"

// TagKeep retains only the named tags on every telemetry metric and log
// line that passes through it, dropping everything else.
type TagKeep struct {
	Tags []string
}

func (f *TagKeep) filtered(donor metric.TagMap) metric.TagMap {
	kept := metric.NewTagMap()
	for _, k := range f.Tags {
		if v, ok := donor[k]; ok {
			kept[k] = v
		}
	}
	return kept
}

// Process implements Filter.
func (f *TagKeep) Process(ev metric.Event) []metric.Event {
	switch ev.Kind {
	case metric.EventTelemetry:
		m := ev.Metric.Clone()
		m.Tags = f.filtered(m.Tags)
		return []metric.Event{metric.TelemetryEvent(m)}
	case metric.EventLog:
		l := ev.Log.Clone()
		l.Tags = f.filtered(l.Tags)
		return []metric.Event{metric.LogEvent(l)}
	default:
		return passthrough(ev)
	}
}
