package quantile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndQuery(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	for i := 1; i <= 100; i++ {
		s.Insert(float64(i))
	}

	median, ok := s.Query(0.5)
	require.True(t, ok)
	assert.InDelta(t, 50.5, median, 5.0)
	assert.Equal(t, uint64(100), s.Count())
	assert.Equal(t, 5050.0, s.Sum())
	assert.Equal(t, 1.0, s.Min())
	assert.Equal(t, 100.0, s.Max())
	assert.Equal(t, 100.0, s.Last())
}

func TestQueryEmpty(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, ok := s.Query(0.5)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), s.Count())
}

func TestMerge(t *testing.T) {
	a, _ := New()
	b, _ := New()

	for i := 1; i <= 50; i++ {
		a.Insert(float64(i))
	}
	for i := 51; i <= 100; i++ {
		b.Insert(float64(i))
	}

	require.NoError(t, a.Merge(b))
	assert.Equal(t, uint64(100), a.Count())
	assert.Equal(t, 1.0, a.Min())
	assert.Equal(t, 100.0, a.Max())

	median, ok := a.Query(0.5)
	require.True(t, ok)
	assert.InDelta(t, 50.5, median, 5.0)
}

func TestMergeEmptyOtherIsNoop(t *testing.T) {
	a, _ := New()
	a.Insert(1.0)
	b, _ := New()

	require.NoError(t, a.Merge(b))
	assert.Equal(t, uint64(1), a.Count())
}
