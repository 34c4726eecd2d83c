// Package graphite is the Graphite plaintext source: it accepts lines
// either from TCP connections or tailed from a growing file, parses
// each with parsers/graphite, and publishes the resulting Raw metrics.
package graphite

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"

	"github.com/influxdata/tail"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/selfstat"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	parser "github.com/flowlane/telemetryd/parsers/graphite"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// Config holds a Graphite source's ingestion settings. Exactly one of
// ServiceAddress (TCP) or Path (file) should be set.
type Config struct {
	ServiceAddress string
	Path           string
}

// Source is the Graphite listener/tailer.
type Source struct {
	cfg     Config
	senders []*hopper.Sender
	log     logger.Logger
	parser  *parser.Parser

	linesRecv selfstat.Stat
	linesDrop selfstat.Stat

	// Ready, if non-nil, receives the TCP listener's bound address once
	// it starts accepting connections.
	Ready chan<- string
}

// New returns a Graphite source publishing parsed metrics to senders.
func New(cfg Config, senders []*hopper.Sender, log logger.Logger) *Source {
	tags := map[string]string{"address": cfg.ServiceAddress, "path": cfg.Path}
	return &Source{
		cfg:       cfg,
		senders:   senders,
		log:       log,
		parser:    parser.New(),
		linesRecv: selfstat.Register("graphite", "lines_received", tags),
		linesDrop: selfstat.Register("graphite", "lines_dropped", tags),
	}
}

// Run dispatches to the TCP listener or file tailer depending on cfg.
func (s *Source) Run(ctx context.Context) error {
	if s.cfg.Path != "" {
		return s.runFile(ctx)
	}
	return s.runTCP(ctx)
}

func (s *Source) runTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ServiceAddress)
	if err != nil {
		return err
	}
	s.log.Infof("graphite: TCP listening on %s", ln.Addr())
	if s.Ready != nil {
		s.Ready <- ln.Addr().String()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			s.log.Errorf("graphite: tcp accept: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Source) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		s.handleLine(scanner.Text())
	}
}

func (s *Source) runFile(ctx context.Context) error {
	t, err := tail.TailFile(s.cfg.Path, tail.Config{Follow: true, ReOpen: true, MustExist: false})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	for line := range t.Lines {
		if line.Err != nil {
			s.log.Errorf("graphite: tail %s: %v", s.cfg.Path, line.Err)
			continue
		}
		s.handleLine(line.Text)
	}
	return nil
}

func (s *Source) handleLine(line string) {
	m, ok := s.parser.ParseLine(line)
	if !ok {
		if strings.TrimSpace(line) != "" {
			s.linesDrop.Incr(1)
			s.log.Errorf("graphite: dropped malformed line: %q", line)
		}
		return
	}
	s.linesRecv.Incr(1)
	if err := fanout.Publish(s.senders, metric.TelemetryEvent(m)); err != nil {
		s.log.Errorf("graphite: publish: %v", err)
	}
}
