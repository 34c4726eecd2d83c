// Package statsd is the StatsD wire-protocol source: it listens on a
// UDP or TCP socket, parses each received datagram/line-batch with
// parsers/statsd, and publishes the resulting metrics to the source's
// downstream channels.
package statsd

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/selfstat"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	parser "github.com/flowlane/telemetryd/parsers/statsd"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// maxDatagramSize bounds a single UDP read, matching typical StatsD
// daemons' accepted packet size.
const maxDatagramSize = 65535

// Config holds a StatsD source's listen settings.
type Config struct {
	// Protocol is "udp" or "tcp".
	Protocol string
	// ServiceAddress is a net.Listen-style address, e.g. ":8125".
	ServiceAddress string
}

// Source is the StatsD listener. It owns no state beyond its stats and
// downstream channels; all parsing is delegated to parser.Parser.
type Source struct {
	cfg     Config
	senders []*hopper.Sender
	log     logger.Logger
	parser  *parser.Parser

	packetsRecv selfstat.Stat
	bytesRecv   selfstat.Stat
	packetsDrop selfstat.Stat

	// Ready, if non-nil, receives the listener's bound address once it
	// starts accepting connections/datagrams — useful for tests binding
	// to port 0 and for startup logging by a caller.
	Ready chan<- string
}

// New returns a StatsD source publishing parsed metrics to senders.
func New(cfg Config, senders []*hopper.Sender, log logger.Logger) *Source {
	tags := map[string]string{"address": cfg.ServiceAddress}
	return &Source{
		cfg:         cfg,
		senders:     senders,
		log:         log,
		parser:      parser.New(),
		packetsRecv: selfstat.Register("statsd", "packets_received", tags),
		bytesRecv:   selfstat.Register("statsd", "bytes_received", tags),
		packetsDrop: selfstat.Register("statsd", "packets_dropped", tags),
	}
}

// Run listens and processes datagrams until ctx is done or the listener
// is closed out from under it.
func (s *Source) Run(ctx context.Context) error {
	if strings.EqualFold(s.cfg.Protocol, "tcp") {
		return s.runTCP(ctx)
	}
	return s.runUDP(ctx)
}

func (s *Source) runUDP(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.ServiceAddress)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.log.Infof("statsd: UDP listening on %s", conn.LocalAddr())
	if s.Ready != nil {
		s.Ready <- conn.LocalAddr().String()
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			s.log.Errorf("statsd: udp read: %v", err)
			continue
		}
		s.packetsRecv.Incr(1)
		s.bytesRecv.Incr(int64(n))
		s.handle(buf[:n])
	}
}

func (s *Source) runTCP(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", s.cfg.ServiceAddress)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Infof("statsd: TCP listening on %s", ln.Addr())
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
			s.log.Errorf("statsd: tcp accept: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Source) handleConn(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, maxDatagramSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.packetsRecv.Incr(1)
			s.bytesRecv.Incr(int64(n))
			s.handle(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// handle parses payload and publishes every resulting metric. A
// malformed datagram is dropped wholesale and logged, per the StatsD
// whole-datagram accept/reject contract.
func (s *Source) handle(payload []byte) {
	metrics, ok := s.parser.Parse(payload, nil)
	if !ok {
		s.packetsDrop.Incr(1)
		s.log.Errorf("statsd: dropped malformed datagram: %q", string(payload))
		return
	}
	for _, m := range metrics {
		if err := fanout.Publish(s.senders, metric.TelemetryEvent(m)); err != nil {
			s.log.Errorf("statsd: publish: %v", err)
		}
	}
}
