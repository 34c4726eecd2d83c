package filters

import (
	"testing"

	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameMatches(t *testing.T) {
	f := &Rename{From: "old.name", To: "new.name"}
	out := f.Process(metric.TelemetryEvent(metric.New("old.name", 1, metric.Counter)))
	require.Len(t, out, 1)
	assert.Equal(t, "new.name", out[0].Metric.Name)
}

func TestRenameLeavesNonMatchingUntouched(t *testing.T) {
	f := &Rename{From: "old.name", To: "new.name"}
	out := f.Process(metric.TelemetryEvent(metric.New("other", 1, metric.Counter)))
	require.Len(t, out, 1)
	assert.Equal(t, "other", out[0].Metric.Name)
}

func TestTagDropRemovesNamedTags(t *testing.T) {
	f := &TagDrop{Tags: []string{"secret"}}
	m := metric.New("a", 1, metric.Counter).OverlayTag("secret", "x").OverlayTag("host", "h1")
	out := f.Process(metric.TelemetryEvent(m))
	require.Len(t, out, 1)
	_, ok := out[0].Metric.Tags["secret"]
	assert.False(t, ok)
	assert.Equal(t, "h1", out[0].Metric.Tags["host"])
}

func TestTagKeepRetainsOnlyNamedTags(t *testing.T) {
	f := &TagKeep{Tags: []string{"host"}}
	m := metric.New("a", 1, metric.Counter).OverlayTag("secret", "x").OverlayTag("host", "h1")
	out := f.Process(metric.TelemetryEvent(m))
	require.Len(t, out, 1)
	assert.Len(t, out[0].Metric.Tags, 1)
	assert.Equal(t, "h1", out[0].Metric.Tags["host"])
}

func TestCountEmitsSyntheticMetricBeforeFlush(t *testing.T) {
	c := &Count{Name: "seen"}
	for i := 0; i < 3; i++ {
		out := c.Process(metric.TelemetryEvent(metric.New("a", 1, metric.Counter)))
		require.Len(t, out, 1)
	}
	out := c.Process(metric.FlushEvent())
	require.Len(t, out, 2)
	assert.Equal(t, "seen", out[0].Metric.Name)
	assert.Equal(t, 3.0, out[0].Metric.Value().Sum())
	assert.Equal(t, metric.EventTimerFlush, out[1].Kind)
}

func TestCountResetsAfterFlush(t *testing.T) {
	c := &Count{}
	c.Process(metric.TelemetryEvent(metric.New("a", 1, metric.Counter)))
	c.Process(metric.FlushEvent())
	out := c.Process(metric.FlushEvent())
	require.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].Metric.Value().Sum())
}
