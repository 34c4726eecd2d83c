// Package config loads the daemon's TOML pipeline topology: an agent
// section plus arrays of source/filter/sink tables, each carrying a
// common Type/ConfigPath header and type-specific settings decoded in a
// second pass once the caller knows which concrete struct that Type
// needs. This two-pass toml.Primitive approach mirrors telegraf's own
// plugin configuration loader.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// AgentConfig holds daemon-wide settings outside any single node.
type AgentConfig struct {
	DataDir       string   `toml:"data_dir"`
	FlushInterval Duration `toml:"flush_interval"`
	BucketWidth   Duration `toml:"bucket_width"`
	MaxFileBytes  int64    `toml:"max_file_bytes"`
}

// defaultAgentConfig mirrors the reference implementation's defaults:
// a 10-second flush cadence and one durable-channel segment capped at
// 10 MiB before rollover.
func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		DataDir:       "/var/lib/telemetryd",
		FlushInterval: Duration(10e9),
		BucketWidth:   Duration(10e9),
		MaxFileBytes:  10 << 20,
	}
}

// NodeHeader is the set of fields common to every source/filter/sink
// table, decoded before the node's Type-specific settings are known.
type NodeHeader struct {
	Type       string `toml:"type"`
	ConfigPath string `toml:"config_path"`
}

// Config is a fully-loaded, not-yet-instantiated pipeline topology.
type Config struct {
	Agent AgentConfig

	Sources []toml.Primitive
	Filters []toml.Primitive
	Sinks   []toml.Primitive

	meta toml.MetaData
}

type document struct {
	Agent   AgentConfig      `toml:"agent"`
	Sources []toml.Primitive `toml:"sources"`
	Filters []toml.Primitive `toml:"filters"`
	Sinks   []toml.Primitive `toml:"sinks"`
}

// Load decodes the TOML file at path into a Config.
func Load(path string) (*Config, error) {
	agent := defaultAgentConfig()
	doc := document{Agent: agent}
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &Config{
		Agent:   doc.Agent,
		Sources: doc.Sources,
		Filters: doc.Filters,
		Sinks:   doc.Sinks,
		meta:    meta,
	}, nil
}

// Header decodes just the common Type/ConfigPath header out of a node's
// raw table, so the caller can dispatch to the right concrete config type
// before fully decoding it.
func (c *Config) Header(prim toml.Primitive) (NodeHeader, error) {
	var h NodeHeader
	if err := c.meta.PrimitiveDecode(prim, &h); err != nil {
		return h, fmt.Errorf("config: decode node header: %w", err)
	}
	return h, nil
}

// Decode fully decodes a node's raw table (including its Type/ConfigPath
// header, if dst embeds NodeHeader) into dst.
func (c *Config) Decode(prim toml.Primitive, dst interface{}) error {
	if err := c.meta.PrimitiveDecode(prim, dst); err != nil {
		return fmt.Errorf("config: decode node: %w", err)
	}
	return nil
}
