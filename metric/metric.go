package metric

import (
	"fmt"
	"time"

	"github.com/flowlane/telemetryd/quantile"
)

// Kind identifies the aggregation semantics of a Metric.
type Kind int

const (
	// Counter is additive within a bucket; samples are pre-scaled by
	// 1/sample_rate before they ever reach a Metric.
	Counter Kind = iota
	// Gauge is last-writer-wins within a bucket.
	Gauge
	// DeltaGauge is an additive delta applied to carried gauge state.
	DeltaGauge
	// Timer feeds a quantile summary.
	Timer
	// Histogram feeds a quantile summary.
	Histogram
	// Raw is last-writer-wins, no aggregation beyond carry-forward.
	Raw
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	case DeltaGauge:
		return "delta-gauge"
	case Timer:
		return "timer"
	case Histogram:
		return "histogram"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Metric is one observation: a kind, a name, a timestamp, a tag set and the
// raw samples that make up its value. Samples is what actually crosses
// goroutine and process-local channel boundaries; the quantile summary is
// built lazily and cached on first use (see Value).
type Metric struct {
	Kind    Kind
	Name    string
	Time    int64
	Tags    TagMap
	Samples []float64

	summary *quantile.Summary
}

// New constructs a Metric with a single sample, timestamped at wall clock
// now unless overridden by WithTime.
func New(name string, value float64, kind Kind) *Metric {
	return &Metric{
		Kind:    kind,
		Name:    name,
		Time:    time.Now().Unix(),
		Tags:    NewTagMap(),
		Samples: []float64{value},
	}
}

// WithTime overrides the timestamp and returns the receiver for chaining.
func (m *Metric) WithTime(t int64) *Metric {
	m.Time = t
	return m
}

// OverlayTag sets a single tag, insert-or-replace.
func (m *Metric) OverlayTag(k, v string) *Metric {
	if m.Tags == nil {
		m.Tags = NewTagMap()
	}
	m.Tags[k] = v
	return m
}

// OverlayTags overlays an entire donor map onto the metric's tags.
func (m *Metric) OverlayTags(donor TagMap) *Metric {
	if m.Tags == nil {
		m.Tags = NewTagMap()
	}
	m.Tags.Overlay(donor)
	return m
}

// MergeTags merges an entire donor map into the metric's tags, never
// overwriting an existing key.
func (m *Metric) MergeTags(donor TagMap) *Metric {
	if m.Tags == nil {
		m.Tags = NewTagMap()
	}
	m.Tags.Merge(donor)
	return m
}

// AddSample appends a raw observation, invalidating any cached summary.
func (m *Metric) AddSample(x float64) {
	m.Samples = append(m.Samples, x)
	m.summary = nil
}

// Value lazily builds and caches a quantile.Summary over the metric's raw
// samples. It is never empty: a Metric always carries at least one sample.
func (m *Metric) Value() *quantile.Summary {
	if m.summary == nil {
		s, _ := quantile.New()
		for _, x := range m.Samples {
			s.Insert(x)
		}
		m.summary = s
	}
	return m.summary
}

// Clone returns a deep copy suitable for fan-out to a second channel.
func (m *Metric) Clone() *Metric {
	samples := make([]float64, len(m.Samples))
	copy(samples, m.Samples)
	return &Metric{
		Kind:    m.Kind,
		Name:    m.Name,
		Time:    m.Time,
		Tags:    m.Tags.Clone(),
		Samples: samples,
	}
}

func (m *Metric) String() string {
	return fmt.Sprintf("Metric{%s %s@%d tags=%v samples=%d}", m.Kind, m.Name, m.Time, m.Tags, len(m.Samples))
}

// LogLine is a single tailed/forwarded log record.
type LogLine struct {
	Time  int64
	Path  string
	Value string
	Tags  TagMap
}

// NewLogLine constructs a LogLine timestamped at wall clock now.
func NewLogLine(path, value string) *LogLine {
	return &LogLine{
		Time:  time.Now().Unix(),
		Path:  path,
		Value: value,
		Tags:  NewTagMap(),
	}
}

// OverlayTag sets a single tag, insert-or-replace.
func (l *LogLine) OverlayTag(k, v string) *LogLine {
	if l.Tags == nil {
		l.Tags = NewTagMap()
	}
	l.Tags[k] = v
	return l
}

// Clone returns a deep copy suitable for fan-out to a second channel.
func (l *LogLine) Clone() *LogLine {
	return &LogLine{
		Time:  l.Time,
		Path:  l.Path,
		Value: l.Value,
		Tags:  l.Tags.Clone(),
	}
}
