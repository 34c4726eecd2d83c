package hopper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthPermutationRoundTrips(t *testing.T) {
	for _, v := range []uint32{0, 1, 255, 256, 65535, 65536, 1 << 20, 0xFFFFFFFF} {
		frame := encodeLength(v)
		assert.Equal(t, v, decodeLength(frame), "round-trip for %d", v)
	}
}

func TestSendReceiveOrder(t *testing.T) {
	dir := t.TempDir()
	snd, rcv, err := NewChannel("events", dir, DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	for i := 0; i < 5; i++ {
		ev := metric.TelemetryEvent(metric.New("counter.a", float64(i), metric.Counter))
		require.NoError(t, snd.Send(ev))
	}

	for i := 0; i < 5; i++ {
		ev, err := rcv.Next()
		require.NoError(t, err)
		require.NotNil(t, ev.Metric)
		assert.Equal(t, float64(i), ev.Metric.Samples[0])
	}
}

func TestRolloverSealsAndUnlinksDrainedSegment(t *testing.T) {
	dir := t.TempDir()
	// A tiny max forces a rollover on roughly every send.
	snd, rcv, err := NewChannel("rollover", dir, 16)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	const n = 20
	for i := 0; i < n; i++ {
		ev := metric.TelemetryEvent(metric.New("x", float64(i), metric.Gauge))
		require.NoError(t, snd.Send(ev))
	}

	for i := 0; i < n; i++ {
		ev, err := rcv.Next()
		require.NoError(t, err)
		assert.Equal(t, float64(i), ev.Metric.Samples[0])
	}

	// Segment 0 was drained and unlinked; the last sealed segment, not yet
	// drained past, is still on disk and read-only.
	_, err = os.Stat(filepath.Join(dir, "rollover", "0"))
	assert.True(t, os.IsNotExist(err))
	info, err := os.Stat(filepath.Join(dir, "rollover", "19"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o200)
}

func TestClonedSendersShareRollover(t *testing.T) {
	dir := t.TempDir()
	snd1, rcv, err := NewChannel("cloned", dir, 16)
	require.NoError(t, err)
	defer snd1.Close()
	defer rcv.Close()

	snd2, err := snd1.Clone()
	require.NoError(t, err)
	defer snd2.Close()

	for i := 0; i < 10; i++ {
		sender := snd1
		if i%2 == 1 {
			sender = snd2
		}
		ev := metric.TelemetryEvent(metric.New("shared", float64(i), metric.Raw))
		require.NoError(t, sender.Send(ev))
	}

	seen := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		ev, err := rcv.Next()
		require.NoError(t, err)
		seen = append(seen, ev.Metric.Samples[0])
	}
	assert.Len(t, seen, 10)
}

func TestOversizedPayloadRejected(t *testing.T) {
	dir := t.TempDir()
	snd, rcv, err := NewChannel("oversized", dir, DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	m := metric.New("huge", 0, metric.Raw)
	for i := 0; i < 200000; i++ {
		m.AddSample(float64(i))
	}
	err = snd.Send(metric.TelemetryEvent(m))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReopenedChannelStartsAtTail(t *testing.T) {
	dir := t.TempDir()
	snd, rcv, err := NewChannel("reopen", dir, DefaultMaxBytesPerFile)
	require.NoError(t, err)
	require.NoError(t, snd.Send(metric.TelemetryEvent(metric.New("a", 1, metric.Counter))))
	require.NoError(t, snd.Close())
	require.NoError(t, rcv.Close())

	snd2, rcv2, err := NewChannel("reopen", dir, DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd2.Close()
	defer rcv2.Close()

	require.NoError(t, snd2.Send(metric.TelemetryEvent(metric.New("b", 2, metric.Counter))))

	ev, err := rcv2.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", ev.Metric.Name)
}
