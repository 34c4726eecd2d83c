package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagMapOverlayIdempotent(t *testing.T) {
	donor := TagMap{"env": "prod"}
	base := TagMap{"env": "dev", "host": "a"}

	base.Overlay(donor)
	once := base.Clone()
	base.Overlay(donor)

	assert.Equal(t, once, base)
	assert.Equal(t, "prod", base["env"])
}

func TestTagMapMergeNeverOverwrites(t *testing.T) {
	donor := TagMap{"env": "prod", "region": "us"}
	base := TagMap{"env": "dev"}

	base.Merge(donor)

	assert.Equal(t, "dev", base["env"])
	assert.Equal(t, "us", base["region"])
}

func TestTagMapKeysSorted(t *testing.T) {
	m := TagMap{"z": "1", "a": "2", "m": "3"}
	assert.Equal(t, []string{"a", "m", "z"}, m.Keys())
}

func TestMetricCloneIsDeep(t *testing.T) {
	m := New("a.b", 12.1, Counter).OverlayTag("host", "x")
	clone := m.Clone()
	clone.Tags["host"] = "y"
	clone.Samples[0] = 99

	assert.Equal(t, "x", m.Tags["host"])
	assert.Equal(t, 12.1, m.Samples[0])
}

func TestEventRoundTrip(t *testing.T) {
	m := New("a.b", 12.1, Counter).OverlayTag("host", "x")
	ev := TelemetryEvent(m)

	b, err := ev.MarshalMsg(nil)
	require.NoError(t, err)

	got, rest, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, EventTelemetry, got.Kind)
	assert.Equal(t, "a.b", got.Metric.Name)
	assert.Equal(t, []float64{12.1}, got.Metric.Samples)
	assert.Equal(t, "x", got.Metric.Tags["host"])
}

func TestFlushEventRoundTrip(t *testing.T) {
	b, err := FlushEvent().MarshalMsg(nil)
	require.NoError(t, err)

	got, _, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Equal(t, EventTimerFlush, got.Kind)
	assert.Nil(t, got.Metric)
	assert.Nil(t, got.Log)
}

func TestLogEventRoundTrip(t *testing.T) {
	l := NewLogLine("/var/log/x.log", "boom").OverlayTag("svc", "api")
	b, err := LogEvent(l).MarshalMsg(nil)
	require.NoError(t, err)

	got, _, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Equal(t, EventLog, got.Kind)
	assert.Equal(t, "boom", got.Log.Value)
	assert.Equal(t, "api", got.Log.Tags["svc"])
}
