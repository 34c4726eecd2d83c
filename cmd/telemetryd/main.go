// Command telemetryd is the telemetry aggregation and forwarding
// daemon: it loads a TOML pipeline topology, wires sources through any
// configured filters into one or more sinks, and runs until signalled
// to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/flowlane/telemetryd/internal/config"
	"github.com/flowlane/telemetryd/internal/selfstat"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/pipeline"
)

func main() {
	configPath := flag.String("config", "/etc/telemetryd/telemetryd.toml", "path to the TOML pipeline configuration")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	if err := logger.SetLevel(logLevel); err != nil {
		return fmt.Errorf("telemetryd: %w", err)
	}

	// runID tags every log line emitted through this logger and its
	// children, and is published as its own selfstat point, so operators
	// can tell runs apart across a restart without relying on PID, which
	// the OS recycles.
	runID := uuid.New().String()
	log := logger.For("telemetryd").With("run_id", runID)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("telemetryd: %w", err)
	}

	selfstat.Register("telemetryd", "run_id", map[string]string{"run_id": runID}).Set(1)

	p, err := pipeline.Build(cfg, log)
	if err != nil {
		return fmt.Errorf("telemetryd: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("starting, config=%s data_dir=%s flush_interval=%s", configPath, cfg.Agent.DataDir, cfg.Agent.FlushInterval.Duration())
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("telemetryd: %w", err)
	}
	log.Info("stopped cleanly")
	return nil
}
