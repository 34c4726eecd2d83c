package filters

import "github.com/flowlane/telemetryd/metric"

// Count tallies telemetry and log events observed since the last flush
// tick, emitting one synthetic Counter metric ahead of each TimerFlush it
// sees. It passes every event through unmodified besides that.
type Count struct {
	Name string
	Tags metric.TagMap

	seen int64
}

// Process implements Filter.
func (c *Count) Process(ev metric.Event) []metric.Event {
	switch ev.Kind {
	case metric.EventTelemetry, metric.EventLog:
		c.seen++
		return passthrough(ev)
	case metric.EventTimerFlush:
		name := c.Name
		if name == "" {
			name = "events.count"
		}
		m := metric.New(name, float64(c.seen), metric.Counter)
		if c.Tags != nil {
			m.OverlayTags(c.Tags)
		}
		c.seen = 0
		return []metric.Event{metric.TelemetryEvent(m), ev}
	default:
		return passthrough(ev)
	}
}
