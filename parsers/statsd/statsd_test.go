package statsd

import (
	"testing"

	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterNoSampleRate(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("a.b:12.1|c\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, metric.Counter, out[0].Kind)
	assert.Equal(t, "a.b", out[0].Name)
	assert.InDelta(t, 12.1, out[0].Value().Sum(), 1e-9)
}

func TestCounterWithSampleRate(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("a.b:12.1|c|@0.5\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.InDelta(t, 24.2, out[0].Value().Sum(), 1e-9)
}

func TestDeltaGaugeSignedValues(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("a:+3|g\na:-1|g\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, metric.DeltaGauge, out[0].Kind)
	assert.Equal(t, 3.0, out[0].Value().Last())
	assert.Equal(t, metric.DeltaGauge, out[1].Kind)
	assert.Equal(t, -1.0, out[1].Value().Last())
}

func TestAbsoluteGauge(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("g:5|g\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, metric.Gauge, out[0].Kind)
}

func TestTimerSampleRateRepeatsSamples(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("t:10|ms|@0.5\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, metric.Timer, out[0].Kind)
	assert.Equal(t, uint64(2), out[0].Value().Count())
}

func TestSetTreatedAsUnitCounter(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("uniques:some-user-id|s\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, metric.Counter, out[0].Kind)
	assert.Equal(t, 1.0, out[0].Value().Sum())
}

func TestMalformedLineRejectsWholeDatagram(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("good:1|c\nnotvalid\n"), nil)
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestMultipleLinesInOneDatagram(t *testing.T) {
	p := New()
	out, ok := p.Parse([]byte("a:1|c\nb:2|c\n"), nil)
	require.True(t, ok)
	require.Len(t, out, 2)
}

func TestUnsupportedTypeRejected(t *testing.T) {
	p := New()
	_, ok := p.Parse([]byte("a:1|zz\n"), nil)
	assert.False(t, ok)
}
