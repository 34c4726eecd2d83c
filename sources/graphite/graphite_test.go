package graphite

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPSourcePublishesParsedMetric(t *testing.T) {
	snd, rcv, err := hopper.NewChannel("graphite", t.TempDir(), hopper.DefaultMaxBytesPerFile)
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
	_, err = conn.Write([]byte("cpu.load 0.5 1700000000\n"))
	require.NoError(t, err)

	ev, err := rcv.Next()
	require.NoError(t, err)
	assert.Equal(t, "cpu.load", ev.Metric.Name)
	assert.Equal(t, int64(1700000000), ev.Metric.Time)

	cancel()
	select {
	case <-runErr:
	case <-time.After(time.Second):
	}
}

func TestMalformedLineIsSkipped(t *testing.T) {
	snd, rcv, err := hopper.NewChannel("graphite-drop", t.TempDir(), hopper.DefaultMaxBytesPerFile)
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
	_, err = conn.Write([]byte("not a valid line\ncpu.load 0.5 1700000000\n"))
	require.NoError(t, err)

	ev, err := rcv.Next()
	require.NoError(t, err)
	assert.Equal(t, "cpu.load", ev.Metric.Name)

	cancel()
	select {
	case <-runErr:
	case <-time.After(time.Second):
	}
}

func TestFileSourceTailsAppendedLines(t *testing.T) {
	snd, rcv, err := hopper.NewChannel("graphite-file", t.TempDir(), hopper.DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	path := filepath.Join(t.TempDir(), "metrics.graphite")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src := New(Config{Path: path}, []*hopper.Sender{snd}, logger.For("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("mem.used 42 1700000001\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ev, err := rcv.Next()
	require.NoError(t, err)
	assert.Equal(t, "mem.used", ev.Metric.Name)

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
	}
}
