// Package natspub implements the NATS-publishing sink: on each flush
// tick it buffers delivered events into a metric.Payload, MessagePack
// encodes it, and publishes the encoded frame to a configured subject,
// treating the NATS subject as a remote store the way the native sink
// treats a TCP collector.
package natspub

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/sinks"
)

// watermark mirrors the native sink's buffered-event admission cap.
const watermark = 10_000

// Config holds the natspub sink's connection settings.
type Config struct {
	URL     string
	Subject string
}

// NatsPub is the NATS-publishing sink. Deliver/DeliverLine only buffer;
// the publish happens in Flush.
type NatsPub struct {
	subject string
	conn    *nats.Conn
	log     logger.Logger

	buffer []metric.Event
}

// Connect dials url and returns a NatsPub publishing to subject.
func Connect(url, subject string, log logger.Logger) (*NatsPub, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("natspub: connect to %s: %w", url, err)
	}
	return &NatsPub{subject: subject, conn: conn, log: log}, nil
}

// New wraps an already-established connection, for testing against an
// in-process or embedded NATS server.
func New(conn *nats.Conn, subject string, log logger.Logger) *NatsPub {
	return &NatsPub{subject: subject, conn: conn, log: log}
}

// Deliver buffers m for the next flush.
func (n *NatsPub) Deliver(m *metric.Metric) {
	n.buffer = append(n.buffer, metric.TelemetryEvent(m))
}

// DeliverLine buffers l for the next flush.
func (n *NatsPub) DeliverLine(l *metric.LogLine) {
	n.buffer = append(n.buffer, metric.LogEvent(l))
}

// ValveState closes once the buffer has grown past watermark.
func (n *NatsPub) ValveState() sinks.Valve {
	if len(n.buffer) > watermark {
		return sinks.Closed
	}
	return sinks.Open
}

// Flush publishes the buffered events as one encoded Payload to the
// configured subject. The buffer is cleared only once Publish reports
// success, so a disconnected or slow-consumer subject is retried with
// the same backlog on the next tick.
func (n *NatsPub) Flush() {
	if len(n.buffer) == 0 {
		return
	}

	payload := metric.NewPayload(n.buffer)
	body, err := payload.MarshalMsg(nil)
	if err != nil {
		n.log.Errorf("natspub: encode payload: %v", err)
		return
	}

	if err := n.conn.Publish(n.subject, body); err != nil {
		n.log.Infof("natspub: publish to %s failed: %v", n.subject, err)
		return
	}

	n.buffer = n.buffer[:0]
}

// Close closes the underlying NATS connection.
func (n *NatsPub) Close() {
	n.conn.Close()
}
