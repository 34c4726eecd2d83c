package filetail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPublishesAppendedLines(t *testing.T) {
	snd, rcv, err := hopper.NewChannel("filetail", t.TempDir(), hopper.DefaultMaxBytesPerFile)
	require.NoError(t, err)
	defer snd.Close()
	defer rcv.Close()

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src := New(Config{Paths: []string{path}}, []*hopper.Sender{snd}, logger.For("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("something happened\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ev, err := rcv.Next()
	require.NoError(t, err)
	assert.Equal(t, path, ev.Log.Path)
	assert.Equal(t, "something happened", ev.Log.Value)

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
	}
}
