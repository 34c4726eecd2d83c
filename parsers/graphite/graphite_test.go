package graphite

import (
	"testing"

	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineBasic(t *testing.T) {
	p := New()
	m, ok := p.ParseLine("fst 1 101\n")
	require.True(t, ok)
	assert.Equal(t, metric.Raw, m.Kind)
	assert.Equal(t, "fst", m.Name)
	assert.Equal(t, int64(101), m.Time)
	assert.Equal(t, 1.0, m.Value().Last())
}

func TestParseLineWrongFieldCount(t *testing.T) {
	p := New()
	_, ok := p.ParseLine("fst 1\n")
	assert.False(t, ok)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	p := New()
	out := p.Parse([]byte("fst 1 101\nbad line here extra\nsnd 2 102\n"), nil)
	require.Len(t, out, 2)
	assert.Equal(t, "fst", out[0].Name)
	assert.Equal(t, "snd", out[1].Name)
}
