// Package buckets implements the time-bucketed aggregation engine: the
// single currently-open accumulation window that a sink's Buckets value
// represents between one flush tick and the next.
//
// A Metric's timestamp nominally selects a bucket as t - (t mod width), but
// this aggregator — like the reference console/native sinks it is modeled
// on — holds exactly one open window at a time, reset wholesale on each
// flush tick. Late or early-timestamped events still fold into whichever
// window is currently open; there is no per-timestamp multi-window routing.
// Width is retained so Reset can advance Base deterministically and so a
// caller can report which window a flush corresponds to.
package buckets

import (
	"sort"

	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/quantile"
)

type scalar struct {
	name string
	tags metric.TagMap
	value float64
}

type histo struct {
	name    string
	tags    metric.TagMap
	summary *quantile.Summary
}

// Buckets is the per-sink aggregation state.
type Buckets struct {
	width        int64
	base         int64
	carryForward bool

	counters    map[string]*scalar
	gauges      map[string]*scalar
	deltaGauges map[string]*scalar
	raws        map[string]*scalar
	timers      map[string]*histo
	histograms  map[string]*histo
}

// New returns an empty Buckets with the given width in seconds and
// carry-forward policy for gauge/raw last-values across a Reset.
func New(widthSeconds int64, carryForward bool) *Buckets {
	return &Buckets{
		width:        widthSeconds,
		carryForward: carryForward,
		counters:     make(map[string]*scalar),
		gauges:       make(map[string]*scalar),
		deltaGauges:  make(map[string]*scalar),
		raws:         make(map[string]*scalar),
		timers:       make(map[string]*histo),
		histograms:   make(map[string]*histo),
	}
}

// Base returns the current bucket's base time: t - t mod width of the first
// metric ever added, advanced by one width on each Reset since. It is 0
// until the first metric arrives.
func (b *Buckets) Base() int64 { return b.base }

func bucketBase(t, width int64) int64 {
	if width <= 0 {
		return t
	}
	mod := t % width
	if mod < 0 {
		mod += width
	}
	return t - mod
}

// Add routes m into the per-kind store keyed by (name, tag fingerprint).
// Add is never called concurrently with Reset in this codebase: both only
// ever run on the owning sink's single goroutine.
func (b *Buckets) Add(m *metric.Metric) {
	if b.base == 0 {
		b.base = bucketBase(m.Time, b.width)
	}
	key := Key(m.Name, m.Tags)

	switch m.Kind {
	case metric.Counter:
		e, ok := b.counters[key]
		if !ok {
			e = &scalar{name: m.Name, tags: m.Tags.Clone()}
			b.counters[key] = e
		}
		e.value += m.Value().Sum()

	case metric.Gauge:
		e, ok := b.gauges[key]
		if !ok {
			e = &scalar{name: m.Name, tags: m.Tags.Clone()}
			b.gauges[key] = e
		}
		e.value = m.Value().Last()

	case metric.DeltaGauge:
		e, ok := b.deltaGauges[key]
		if !ok {
			e = &scalar{name: m.Name, tags: m.Tags.Clone()}
			b.deltaGauges[key] = e
		}
		e.value += m.Value().Sum()

	case metric.Raw:
		e, ok := b.raws[key]
		if !ok {
			e = &scalar{name: m.Name, tags: m.Tags.Clone()}
			b.raws[key] = e
		}
		e.value = m.Value().Last()

	case metric.Timer:
		b.mergeHisto(b.timers, key, m)

	case metric.Histogram:
		b.mergeHisto(b.histograms, key, m)
	}
}

func (b *Buckets) mergeHisto(store map[string]*histo, key string, m *metric.Metric) {
	e, ok := store[key]
	if !ok {
		s, _ := quantile.New()
		e = &histo{name: m.Name, tags: m.Tags.Clone(), summary: s}
		store[key] = e
	}
	_ = e.summary.Merge(m.Value())
}

// Reset clears additive stores (counters, delta-gauge accumulation,
// timers/histograms) and advances the bucket base by one width. Gauge/Raw
// last-values are carried forward if CarryForward, else cleared too.
func (b *Buckets) Reset() {
	b.counters = make(map[string]*scalar)
	b.deltaGauges = make(map[string]*scalar)
	b.timers = make(map[string]*histo)
	b.histograms = make(map[string]*histo)

	if !b.carryForward {
		b.gauges = make(map[string]*scalar)
		b.raws = make(map[string]*scalar)
	}

	if b.width > 0 {
		b.base += b.width
	}
}

// ScalarPoint is one (name, tags, value) observation returned by iteration.
type ScalarPoint struct {
	Name  string
	Tags  metric.TagMap
	Value float64
}

// HistoPoint is one (name, tags, summary) observation returned by
// iteration.
type HistoPoint struct {
	Name    string
	Tags    metric.TagMap
	Summary *quantile.Summary
}

func scalarPoints(store map[string]*scalar) []ScalarPoint {
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ScalarPoint, 0, len(store))
	for _, k := range keys {
		e := store[k]
		out = append(out, ScalarPoint{Name: e.name, Tags: e.tags, Value: e.value})
	}
	return out
}

func histoPoints(store map[string]*histo) []HistoPoint {
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]HistoPoint, 0, len(store))
	for _, k := range keys {
		e := store[k]
		out = append(out, HistoPoint{Name: e.name, Tags: e.tags, Summary: e.summary})
	}
	return out
}

// Counters returns all counter points in deterministic (sorted-key) order.
func (b *Buckets) Counters() []ScalarPoint { return scalarPoints(b.counters) }

// Gauges returns all gauge points in deterministic order.
func (b *Buckets) Gauges() []ScalarPoint { return scalarPoints(b.gauges) }

// DeltaGauges returns all delta-gauge points in deterministic order.
func (b *Buckets) DeltaGauges() []ScalarPoint { return scalarPoints(b.deltaGauges) }

// Raws returns all raw points in deterministic order.
func (b *Buckets) Raws() []ScalarPoint { return scalarPoints(b.raws) }

// Timers returns all timer points in deterministic order.
func (b *Buckets) Timers() []HistoPoint { return histoPoints(b.timers) }

// Histograms returns all histogram points in deterministic order.
func (b *Buckets) Histograms() []HistoPoint { return histoPoints(b.histograms) }
