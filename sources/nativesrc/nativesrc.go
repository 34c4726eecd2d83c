// Package nativesrc is the receiving counterpart of sinks/native: it
// accepts TCP connections, reads one length-delimited metric.Payload
// frame per round trip, reconstitutes Events from it, and publishes
// them to its downstream channels.
package nativesrc

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/framing"
	"github.com/flowlane/telemetryd/internal/selfstat"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// Config holds the native source's listen settings.
type Config struct {
	ServiceAddress string
}

// Source is the native protocol listener.
type Source struct {
	cfg     Config
	senders []*hopper.Sender
	log     logger.Logger

	framesRecv selfstat.Stat
	framesDrop selfstat.Stat

	// Ready, if non-nil, receives the listener's bound address once it
	// starts accepting connections.
	Ready chan<- string
}

// New returns a native source publishing reconstituted events to senders.
func New(cfg Config, senders []*hopper.Sender, log logger.Logger) *Source {
	tags := map[string]string{"address": cfg.ServiceAddress}
	return &Source{
		cfg:        cfg,
		senders:    senders,
		log:        log,
		framesRecv: selfstat.Register("nativesrc", "frames_received", tags),
		framesDrop: selfstat.Register("nativesrc", "frames_dropped", tags),
	}
}

// Run listens and processes connections until ctx is done.
func (s *Source) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ServiceAddress)
	if err != nil {
		return err
	}
	s.log.Infof("nativesrc: TCP listening on %s", ln.Addr())
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
			s.log.Errorf("nativesrc: accept: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Source) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		body, err := framing.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Errorf("nativesrc: read frame: %v", err)
			}
			return
		}
		s.handleFrame(body)
	}
}

func (s *Source) handleFrame(body []byte) {
	payload, _, err := metric.UnmarshalPayload(body)
	if err != nil {
		s.framesDrop.Incr(1)
		s.log.Errorf("nativesrc: decode payload: %v", err)
		return
	}
	s.framesRecv.Incr(1)

	for _, t := range payload.Telemetry {
		m := metric.New(t.Name, 0, kindFromMethod(t.Method)).WithTime(t.TimestampMs / 1000)
		m.Samples = append([]float64{}, t.Samples...)
		m.Tags = t.Metadata
		if err := fanout.Publish(s.senders, metric.TelemetryEvent(m)); err != nil {
			s.log.Errorf("nativesrc: publish telemetry: %v", err)
		}
	}
	for _, l := range payload.Logs {
		line := &metric.LogLine{
			Time:  l.TimestampMs / 1000,
			Path:  l.Path,
			Value: l.Value,
			Tags:  l.Metadata,
		}
		if err := fanout.Publish(s.senders, metric.LogEvent(line)); err != nil {
			s.log.Errorf("nativesrc: publish log: %v", err)
		}
	}
}

// kindFromMethod recovers an approximate Kind from the wire's
// AggregationMethod. The mapping Counter/DeltaGauge/Timer-and-Histogram
// -> AggregationMethod is not invertible (Timer and Histogram both map
// to Summarize, Gauge and Raw both map to SetOrReset); this side picks
// the more common original for each method, which only affects how a
// re-forwarded metric aggregates downstream, not the samples it carries.
func kindFromMethod(method metric.AggregationMethod) metric.Kind {
	switch method {
	case metric.WindowCount:
		return metric.Counter
	case metric.MonotonicAdd:
		return metric.DeltaGauge
	case metric.Summarize:
		return metric.Timer
	default:
		return metric.Gauge
	}
}
