// Package native implements the native downstream sink: it buffers
// delivered events in memory and, on each flush tick, drains the buffer
// into a metric.Payload and writes it as one length-delimited MessagePack
// frame over a freshly dialed TCP connection to a downstream collector.
package native

import (
	"fmt"
	"net"
	"time"

	"github.com/flowlane/telemetryd/internal/framing"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/sinks"
)

// watermark is the buffered-event count above which the sink closes its
// valve, matching the reference implementation's fixed 10,000-event cap.
const watermark = 10_000

// dialTimeout bounds how long Flush waits for the downstream collector
// to accept a connection before giving up until the next tick.
const dialTimeout = 5 * time.Second

// Config holds the native sink's connection settings.
type Config struct {
	Host string
	Port uint16
}

// Native is the native downstream sink. Deliver/DeliverLine only buffer;
// all wire activity happens in Flush.
type Native struct {
	host string
	port uint16
	log  logger.Logger

	buffer []metric.Event
	dial   func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New returns a Native sink dialing host:port on each flush.
func New(cfg Config, log logger.Logger) *Native {
	return &Native{
		host: cfg.Host,
		port: cfg.Port,
		log:  log,
		dial: net.DialTimeout,
	}
}

// Deliver buffers m for the next flush.
func (n *Native) Deliver(m *metric.Metric) {
	n.buffer = append(n.buffer, metric.TelemetryEvent(m))
}

// DeliverLine buffers l for the next flush.
func (n *Native) DeliverLine(l *metric.LogLine) {
	n.buffer = append(n.buffer, metric.LogEvent(l))
}

// ValveState closes once the buffer has grown past watermark, signaling
// upstream filters to ease off until the next successful flush drains it.
func (n *Native) ValveState() sinks.Valve {
	if len(n.buffer) > watermark {
		return sinks.Closed
	}
	return sinks.Open
}

// Flush attempts to deliver the buffered events to the downstream
// collector as one framed Payload. The buffer is cleared only on a
// successful write; on any failure it is left intact so the next flush
// tick retries the same backlog, matching the reference sink's
// clear-on-success-only behavior.
func (n *Native) Flush() {
	if len(n.buffer) == 0 {
		return
	}

	payload := metric.NewPayload(n.buffer)
	body, err := payload.MarshalMsg(nil)
	if err != nil {
		n.log.Errorf("native: encode payload: %v", err)
		return
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	conn, err := n.dial("tcp", addr, dialTimeout)
	if err != nil {
		n.log.Infof("native: unable to connect to %s: %v", addr, err)
		return
	}
	defer conn.Close()

	if err := framing.WriteFrame(conn, body); err != nil {
		n.log.Infof("native: write to %s failed: %v", addr, err)
		return
	}

	n.buffer = n.buffer[:0]
}
