// Package promexport implements the pull-based Prometheus exposition
// sink: delivered metrics accumulate into a buckets.Buckets exactly like
// the console sink, but instead of the sink pushing output on a flush
// tick, a registered prometheus.Collector reads the live bucket state on
// every scrape. Flush still resets the window on the normal cadence, so
// a scrape only ever sees one window's worth of accumulation.
package promexport

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowlane/telemetryd/buckets"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/quantile"
	"github.com/flowlane/telemetryd/sinks"
)

var invalidChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitize turns an arbitrary metric or tag name into a valid Prometheus
// identifier, since this sink's metric names are not known until runtime.
func sanitize(name string) string {
	s := invalidChars.ReplaceAllString(name, "_")
	if s == "" {
		return "_"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// PromExport is both a sinks.Sink and a prometheus.Collector: Deliver
// folds into the aggregator under a lock; Collect reads the current
// window without mutating it, so concurrent scrapes never race a flush.
type PromExport struct {
	mu    sync.Mutex
	aggrs *buckets.Buckets
}

// New returns a PromExport aggregating into a bucket of the given width
// in seconds, with gauge/raw values carried forward across a Reset (a
// scrape between flushes should still see the last known gauge value).
func New(widthSeconds int64) *PromExport {
	return &PromExport{aggrs: buckets.New(widthSeconds, true)}
}

// Deliver folds m into the current window.
func (p *PromExport) Deliver(m *metric.Metric) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aggrs.Add(m)
}

// DeliverLine is a no-op: there is no Prometheus representation of an
// arbitrary log line.
func (p *PromExport) DeliverLine(_ *metric.LogLine) {}

// ValveState is always Open: a pull-based sink never falls behind a
// downstream system the way a push sink can.
func (p *PromExport) ValveState() sinks.Valve { return sinks.Open }

// Flush resets the window on the normal flush cadence.
func (p *PromExport) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aggrs.Reset()
}

// Describe satisfies prometheus.Collector. No metrics are described
// ahead of time since the metric set is only known at scrape time.
func (p *PromExport) Describe(ch chan<- *prometheus.Desc) {}

func labelPairs(tags metric.TagMap) ([]string, []string) {
	names := make([]string, 0, len(tags))
	values := make([]string, 0, len(tags))
	for _, k := range tags.Keys() {
		names = append(names, sanitize(k))
		values = append(values, tags[k])
	}
	return names, values
}

func (p *PromExport) emitScalar(ch chan<- prometheus.Metric, valueType prometheus.ValueType, points []buckets.ScalarPoint) {
	for _, pt := range points {
		names, values := labelPairs(pt.Tags)
		desc := prometheus.NewDesc(sanitize(pt.Name), "telemetryd metric "+pt.Name, names, nil)
		m, err := prometheus.NewConstMetric(desc, valueType, pt.Value, values...)
		if err != nil {
			continue
		}
		ch <- m
	}
}

func (p *PromExport) emitSummary(ch chan<- prometheus.Metric, points []buckets.HistoPoint) {
	for _, pt := range points {
		names, values := labelPairs(pt.Tags)
		quantiles := make(map[float64]float64, len(quantile.StandardQuantiles))
		for _, q := range quantile.StandardQuantiles {
			if v, ok := pt.Summary.Query(q); ok {
				quantiles[q] = v
			}
		}
		desc := prometheus.NewDesc(sanitize(pt.Name), "telemetryd quantile summary "+pt.Name, names, nil)
		m, err := prometheus.NewConstSummary(desc, pt.Summary.Count(), pt.Summary.Sum(), quantiles, values...)
		if err != nil {
			continue
		}
		ch <- m
	}
}

// Collect satisfies prometheus.Collector, translating the live bucket
// state into Prometheus samples without resetting it.
func (p *PromExport) Collect(ch chan<- prometheus.Metric) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.emitScalar(ch, prometheus.CounterValue, p.aggrs.Counters())
	p.emitScalar(ch, prometheus.GaugeValue, p.aggrs.Gauges())
	p.emitScalar(ch, prometheus.GaugeValue, p.aggrs.DeltaGauges())
	p.emitScalar(ch, prometheus.GaugeValue, p.aggrs.Raws())
	p.emitSummary(ch, p.aggrs.Timers())
	p.emitSummary(ch, p.aggrs.Histograms())
}

// Serve registers c with a dedicated prometheus.Registry and serves
// /metrics on addr until ctx is cancelled, mirroring the ambient stack's
// other standalone-endpoint sinks.
func Serve(ctx context.Context, addr string, c *PromExport) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
