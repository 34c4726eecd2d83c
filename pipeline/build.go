package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/flowlane/telemetryd/filters"
	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/config"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/sinks"
	"github.com/flowlane/telemetryd/sinks/console"
	"github.com/flowlane/telemetryd/sinks/native"
	"github.com/flowlane/telemetryd/sinks/natspub"
	"github.com/flowlane/telemetryd/sinks/promexport"
	"github.com/flowlane/telemetryd/sources/filetail"
	"github.com/flowlane/telemetryd/sources/flushtimer"
	"github.com/flowlane/telemetryd/sources/graphite"
	"github.com/flowlane/telemetryd/sources/nativesrc"
	"github.com/flowlane/telemetryd/sources/statsd"
)

// runnable is anything the pipeline starts in its own goroutine and
// waits on until the run context is cancelled.
type runnable interface {
	Run(ctx context.Context) error
}

// filterStage pairs a running filter with the channel feeding it.
type filterStage struct {
	recv *hopper.Receiver
	f    filters.Filter
	out  []*hopper.Sender
}

// sinkStage pairs a running sink with the channel feeding it.
type sinkStage struct {
	recv *hopper.Receiver
	s    sinks.Sink
}

// Pipeline is a fully wired topology: sources and a flush timer feeding
// a chain of filters (if any), terminating in one or more sinks. Every
// node owns its own durable channel; nothing here blocks on another
// node's progress beyond hopper's own backpressure.
type Pipeline struct {
	log     logger.Logger
	sources []runnable
	filters []filterStage
	sinks   []sinkStage

	promServers []promServer
}

// promServer is a promexport sink's HTTP exposition endpoint, started
// alongside the rest of the pipeline and stopped on shutdown.
type promServer struct {
	addr string
	c    *promexport.PromExport
}

// Build assembles a Pipeline from cfg: sinks first (each gets its own
// channel), then filters chained in the order they're listed (each
// non-last filter feeds the next filter's channel; the last filter fans
// out to every sink), then sources and the agent's flush timer, which
// publish to the first filter's channel if any filters exist, or
// directly to every sink otherwise.
func Build(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	p := &Pipeline{log: log}

	sinkSenders, err := p.buildSinks(cfg)
	if err != nil {
		return nil, err
	}

	firstStageSenders, err := p.buildFilters(cfg, sinkSenders)
	if err != nil {
		return nil, err
	}

	if err := p.buildSources(cfg, firstStageSenders); err != nil {
		return nil, err
	}

	p.sources = append(p.sources, flushtimer.New(
		cfg.Agent.FlushInterval.Duration(),
		firstStageSenders,
		log.With("component", "flushtimer"),
	))

	return p, nil
}

func (p *Pipeline) channelDir(cfg *config.Config, kind string, index int, typ string) string {
	return filepath.Join(cfg.Agent.DataDir, kind, fmt.Sprintf("%d-%s", index, typ))
}

func (p *Pipeline) buildSinks(cfg *config.Config) ([]*hopper.Sender, error) {
	var sinkSenders []*hopper.Sender
	for i, prim := range cfg.Sinks {
		header, err := cfg.Header(prim)
		if err != nil {
			return nil, err
		}

		snd, rcv, err := hopper.NewChannel(
			fmt.Sprintf("sink-%d", i),
			p.channelDir(cfg, "sinks", i, header.Type),
			cfg.Agent.MaxFileBytes,
		)
		if err != nil {
			return nil, fmt.Errorf("pipeline: open channel for sink %q: %w", header.Type, err)
		}

		s, err := p.newSink(cfg, prim, header)
		if err != nil {
			return nil, err
		}

		p.sinks = append(p.sinks, sinkStage{recv: rcv, s: s})
		sinkSenders = append(sinkSenders, snd)
	}
	if len(sinkSenders) == 0 {
		return nil, fmt.Errorf("pipeline: no sinks configured")
	}
	return sinkSenders, nil
}

func (p *Pipeline) newSink(cfg *config.Config, prim toml.Primitive, header config.NodeHeader) (sinks.Sink, error) {
	width := int64(cfg.Agent.BucketWidth.Duration().Seconds())

	switch header.Type {
	case "console":
		var node consoleSinkConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return console.New(width), nil

	case "native":
		var node nativeSinkConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return native.New(native.Config{Host: node.Host, Port: node.Port}, p.log.With("sink", "native")), nil

	case "promexport":
		var node promexportSinkConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		c := promexport.New(width)
		p.promServers = append(p.promServers, promServer{addr: node.ListenAddress, c: c})
		return c, nil

	case "natspub":
		var node natspubSinkConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return natspub.Connect(node.URL, node.Subject, p.log.With("sink", "natspub"))

	default:
		return nil, unknownType("sink", header.Type)
	}
}

// buildFilters wires the filter chain in listing order, returning the
// senders the first stage (sources and the flush timer) should publish
// to: the first filter's channel if any filters are configured, else
// sinkSenders unchanged.
func (p *Pipeline) buildFilters(cfg *config.Config, sinkSenders []*hopper.Sender) ([]*hopper.Sender, error) {
	if len(cfg.Filters) == 0 {
		return sinkSenders, nil
	}

	senders := make([]*hopper.Sender, len(cfg.Filters))
	for i, prim := range cfg.Filters {
		header, err := cfg.Header(prim)
		if err != nil {
			return nil, err
		}

		snd, rcv, err := hopper.NewChannel(
			fmt.Sprintf("filter-%d", i),
			p.channelDir(cfg, "filters", i, header.Type),
			cfg.Agent.MaxFileBytes,
		)
		if err != nil {
			return nil, fmt.Errorf("pipeline: open channel for filter %q: %w", header.Type, err)
		}

		f, err := p.newFilter(cfg, prim, header)
		if err != nil {
			return nil, err
		}

		p.filters = append(p.filters, filterStage{recv: rcv, f: f})
		senders[i] = snd
	}

	for i := range p.filters {
		if i == len(p.filters)-1 {
			p.filters[i].out = sinkSenders
		} else {
			p.filters[i].out = []*hopper.Sender{senders[i+1]}
		}
	}

	return senders[:1], nil
}

func (p *Pipeline) newFilter(cfg *config.Config, prim toml.Primitive, header config.NodeHeader) (filters.Filter, error) {
	switch header.Type {
	case "rename":
		var node renameFilterConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return &filters.Rename{From: node.From, To: node.To}, nil

	case "tagdrop":
		var node tagdropFilterConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return &filters.TagDrop{Tags: node.Tags}, nil

	case "tagkeep":
		var node tagkeepFilterConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return &filters.TagKeep{Tags: node.Tags}, nil

	case "count":
		var node countFilterConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return &filters.Count{Name: node.Name, Tags: node.Tags}, nil

	default:
		return nil, unknownType("filter", header.Type)
	}
}

func (p *Pipeline) buildSources(cfg *config.Config, out []*hopper.Sender) error {
	for _, prim := range cfg.Sources {
		header, err := cfg.Header(prim)
		if err != nil {
			return err
		}

		r, err := p.newSource(cfg, prim, header, out)
		if err != nil {
			return err
		}
		p.sources = append(p.sources, r)
	}
	return nil
}

func (p *Pipeline) newSource(cfg *config.Config, prim toml.Primitive, header config.NodeHeader, out []*hopper.Sender) (runnable, error) {
	switch header.Type {
	case "statsd":
		var node statsdSourceConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return statsd.New(statsd.Config{Protocol: node.Protocol, ServiceAddress: node.ServiceAddress}, out, p.log.With("source", "statsd")), nil

	case "graphite":
		var node graphiteSourceConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return graphite.New(graphite.Config{ServiceAddress: node.ServiceAddress, Path: node.Path}, out, p.log.With("source", "graphite")), nil

	case "native":
		var node nativeSourceConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return nativesrc.New(nativesrc.Config{ServiceAddress: node.ServiceAddress}, out, p.log.With("source", "native")), nil

	case "filetail":
		var node filetailSourceConfig
		if err := cfg.Decode(prim, &node); err != nil {
			return nil, err
		}
		return filetail.New(filetail.Config{Paths: node.Paths}, out, p.log.With("source", "filetail")), nil

	default:
		return nil, unknownType("source", header.Type)
	}
}
