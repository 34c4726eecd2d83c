package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlane/telemetryd/internal/config"
	"github.com/flowlane/telemetryd/logger"
)

const sampleTOML = `
[agent]
  data_dir = %q
  flush_interval = "50ms"
  bucket_width = 1
  max_file_bytes = 1048576

[[sources]]
  type = "statsd"
  config_path = "sources.statsd"
  protocol = "udp"
  service_address = "127.0.0.1:0"

[[filters]]
  type = "rename"
  config_path = "filters.rename"
  from = "old.name"
  to = "new.name"

[[sinks]]
  type = "console"
  config_path = "sinks.console"
`

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := dataDir + "/telemetryd.toml"
	content := fmt.Sprintf(sampleTOML, dataDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildWiresSourcesFiltersAndSinks(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	p, err := Build(cfg, logger.For("test"))
	require.NoError(t, err)

	assert.Len(t, p.sources, 2) // statsd + flush timer
	assert.Len(t, p.filters, 1)
	assert.Len(t, p.sinks, 1)
}

func TestBuildRejectsUnknownSinkType(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/telemetryd.toml"
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
[agent]
  data_dir = %q

[[sinks]]
  type = "carrier-pigeon"
`, dir)), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	_, err = Build(cfg, logger.For("test"))
	require.Error(t, err)
}

func TestPipelineRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	p, err := Build(cfg, logger.For("test"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}
