package buckets

import (
	"testing"

	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintPermutationInvariant(t *testing.T) {
	a := metric.TagMap{"host": "x", "env": "prod"}
	b := metric.TagMap{"env": "prod", "host": "x"}

	assert.Equal(t, Fingerprint("m", a), Fingerprint("m", b))
}

func TestCounterAggregation(t *testing.T) {
	bk := New(10, true)
	bk.Add(metric.New("a.b", 12.1, metric.Counter))
	bk.Add(metric.New("a.b", 2.0, metric.Counter))

	pts := bk.Counters()
	require.Len(t, pts, 1)
	assert.InDelta(t, 14.1, pts[0].Value, 1e-9)
}

func TestDeltaGaugeNetsAcrossAdds(t *testing.T) {
	bk := New(10, true)
	bk.Add(metric.New("a", 3, metric.DeltaGauge))
	bk.Add(metric.New("a", -1, metric.DeltaGauge))

	pts := bk.DeltaGauges()
	require.Len(t, pts, 1)
	assert.Equal(t, 2.0, pts[0].Value)
}

func TestGaugeLastWriterWins(t *testing.T) {
	bk := New(10, true)
	bk.Add(metric.New("g", 1, metric.Gauge))
	bk.Add(metric.New("g", 2, metric.Gauge))

	pts := bk.Gauges()
	require.Len(t, pts, 1)
	assert.Equal(t, 2.0, pts[0].Value)
}

func TestResetClearsAdditiveStores(t *testing.T) {
	bk := New(10, true)
	bk.Add(metric.New("a", 1, metric.Counter))
	bk.Add(metric.New("g", 5, metric.Gauge))
	bk.Add(metric.New("t", 1, metric.Timer))

	bk.Reset()

	assert.Empty(t, bk.Counters())
	assert.Empty(t, bk.Timers())
	// Gauge persists because carryForward defaults to true in this test.
	pts := bk.Gauges()
	require.Len(t, pts, 1)
	assert.Equal(t, 5.0, pts[0].Value)
}

func TestResetWithoutCarryForwardClearsGauges(t *testing.T) {
	bk := New(10, false)
	bk.Add(metric.New("g", 5, metric.Gauge))
	bk.Reset()

	assert.Empty(t, bk.Gauges())
}

func TestTimerMergeAccumulatesAcrossAdds(t *testing.T) {
	bk := New(10, true)
	for i := 1; i <= 100; i++ {
		bk.Add(metric.New("t", float64(i), metric.Timer))
	}

	pts := bk.Timers()
	require.Len(t, pts, 1)
	assert.Equal(t, uint64(100), pts[0].Summary.Count())

	median, ok := pts[0].Summary.Query(0.5)
	require.True(t, ok)
	assert.InDelta(t, 50.5, median, 5.0)
}
