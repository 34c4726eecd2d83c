package promexport

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"

	"github.com/flowlane/telemetryd/metric"
)

func scrape(t *testing.T, p *PromExport) string {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(p)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestCollectEmitsDeliveredCounter(t *testing.T) {
	p := New(1)
	p.Deliver(metric.New("requests.total", 3, metric.Counter).OverlayTag("host", "h1"))

	body := scrape(t, p)
	assert.Contains(t, body, "requests_total")
	assert.Contains(t, body, `host="h1"`)
}

func TestFlushResetsWindow(t *testing.T) {
	p := New(1)
	p.Deliver(metric.New("requests.total", 3, metric.Counter))
	p.Flush()

	body := scrape(t, p)
	assert.NotContains(t, strings.ToLower(body), "requests_total 3")
}

func TestSanitizeReplacesInvalidCharacters(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitize("a.b-c"))
	assert.Equal(t, "_123", sanitize("123"))
}
