// Package pipeline assembles a topology of sources, filters, and sinks
// out of a loaded internal/config.Config, wires them together with
// durable channels, and runs the whole graph until cancelled.
package pipeline

import (
	"fmt"

	"github.com/flowlane/telemetryd/internal/config"
)

// statsdSourceConfig is sources/statsd.Config plus its TOML header.
type statsdSourceConfig struct {
	config.NodeHeader
	Protocol       string `toml:"protocol"`
	ServiceAddress string `toml:"service_address"`
}

// graphiteSourceConfig is sources/graphite.Config plus its TOML header.
type graphiteSourceConfig struct {
	config.NodeHeader
	ServiceAddress string `toml:"service_address"`
	Path           string `toml:"path"`
}

// nativeSourceConfig is sources/nativesrc.Config plus its TOML header.
type nativeSourceConfig struct {
	config.NodeHeader
	ServiceAddress string `toml:"service_address"`
}

// filetailSourceConfig is sources/filetail.Config plus its TOML header.
type filetailSourceConfig struct {
	config.NodeHeader
	Paths []string `toml:"paths"`
}

// consoleSinkConfig carries the console sink's TOML header; it has no
// settings of its own beyond the agent-wide bucket width.
type consoleSinkConfig struct {
	config.NodeHeader
}

// nativeSinkConfig is sinks/native.Config plus its TOML header.
type nativeSinkConfig struct {
	config.NodeHeader
	Host string `toml:"host"`
	Port uint16 `toml:"port"`
}

// promexportSinkConfig configures the Prometheus exposition endpoint.
type promexportSinkConfig struct {
	config.NodeHeader
	ListenAddress string `toml:"listen_address"`
}

// natspubSinkConfig is sinks/natspub.Config plus its TOML header.
type natspubSinkConfig struct {
	config.NodeHeader
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// renameFilterConfig configures a filters.Rename.
type renameFilterConfig struct {
	config.NodeHeader
	From string `toml:"from"`
	To   string `toml:"to"`
}

// tagdropFilterConfig configures a filters.TagDrop.
type tagdropFilterConfig struct {
	config.NodeHeader
	Tags []string `toml:"tags"`
}

// tagkeepFilterConfig configures a filters.TagKeep.
type tagkeepFilterConfig struct {
	config.NodeHeader
	Tags []string `toml:"tags"`
}

// countFilterConfig configures a filters.Count.
type countFilterConfig struct {
	config.NodeHeader
	Name string            `toml:"name"`
	Tags map[string]string `toml:"tags"`
}

func unknownType(kind, typ string) error {
	return fmt.Errorf("pipeline: unknown %s type %q", kind, typ)
}
