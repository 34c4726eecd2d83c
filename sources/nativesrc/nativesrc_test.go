package nativesrc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/framing"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPublishesReconstitutedEvents(t *testing.T) {
	snd, rcv, err := hopper.NewChannel("nativesrc", t.TempDir(), hopper.DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	src := New(Config{ServiceAddress: "127.0.0.1:0"}, []*hopper.Sender{snd}, logger.For("test"))
	ready := make(chan string, 1)
	src.Ready = ready

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx) }()

	addr := <-ready
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	payload := metric.NewPayload([]metric.Event{
		metric.TelemetryEvent(metric.New("requests", 3, metric.Counter).OverlayTag("host", "h1")),
		metric.LogEvent(metric.NewLogLine("/var/log/x", "line")),
	})
	body, err := payload.MarshalMsg(nil)
	require.NoError(t, err)
	require.NoError(t, framing.WriteFrame(conn, body))

	ev1, err := rcv.Next()
	require.NoError(t, err)
	ev2, err := rcv.Next()
	require.NoError(t, err)

	var telemetrySeen, logSeen bool
	for _, ev := range []*metric.Event{ev1, ev2} {
		switch ev.Kind {
		case metric.EventTelemetry:
			telemetrySeen = true
			assert.Equal(t, "requests", ev.Metric.Name)
			assert.Equal(t, "h1", ev.Metric.Tags["host"])
		case metric.EventLog:
			logSeen = true
			assert.Equal(t, "/var/log/x", ev.Log.Path)
		}
	}
	assert.True(t, telemetrySeen)
	assert.True(t, logSeen)

	cancel()
	select {
	case <-runErr:
	case <-time.After(time.Second):
	}
}
