package metric

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// AggregationMethod is the native wire protocol's hint to a downstream
// collector about how to combine repeated observations of the same
// series, independent of how this process aggregates it locally.
type AggregationMethod int

const (
	// WindowCount sums observations within a window (Counter).
	WindowCount AggregationMethod = iota
	// SetOrReset keeps only the latest observation (Gauge, Raw).
	SetOrReset
	// MonotonicAdd applies signed deltas cumulatively (DeltaGauge).
	MonotonicAdd
	// Summarize folds observations into a quantile summary (Timer,
	// Histogram).
	Summarize
)

// AggregationMethod maps a Kind to the wire protocol's aggregation hint.
func (k Kind) AggregationMethod() AggregationMethod {
	switch k {
	case Counter:
		return WindowCount
	case DeltaGauge:
		return MonotonicAdd
	case Timer, Histogram:
		return Summarize
	default: // Gauge, Raw
		return SetOrReset
	}
}

// TelemetryRecord is one metric as it appears in a native wire Payload.
type TelemetryRecord struct {
	Name        string
	TimestampMs int64
	Method      AggregationMethod
	Metadata    TagMap
	Samples     []float64
}

// LogRecord is one log line as it appears in a native wire Payload.
type LogRecord struct {
	Path        string
	Value       string
	TimestampMs int64
	Metadata    TagMap
}

// Payload is the batch unit the native sink writes and the native source
// reads: repeated telemetry records and repeated log records, produced
// from a batch of Events and flattened here because the wire record shape
// (aggregation method, millisecond timestamps) differs from the
// in-process Metric/LogLine shape.
type Payload struct {
	Telemetry []TelemetryRecord
	Logs      []LogRecord
}

// NewPayload flattens a batch of Events into a Payload, dropping any
// TimerFlush events (the flush tick has no wire representation — it is
// the cadence at which this function is called).
func NewPayload(events []Event) Payload {
	var p Payload
	for _, ev := range events {
		switch ev.Kind {
		case EventTelemetry:
			m := ev.Metric
			p.Telemetry = append(p.Telemetry, TelemetryRecord{
				Name:        m.Name,
				TimestampMs: m.Time * 1000,
				Method:      m.Kind.AggregationMethod(),
				Metadata:    m.Tags,
				Samples:     m.Samples,
			})
		case EventLog:
			l := ev.Log
			p.Logs = append(p.Logs, LogRecord{
				Path:        l.Path,
				Value:       l.Value,
				TimestampMs: l.Time * 1000,
				Metadata:    l.Tags,
			})
		}
	}
	return p
}

// MarshalMsg appends the MessagePack encoding of p to b.
func (p Payload) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, uint32(len(p.Telemetry)))
	for _, t := range p.Telemetry {
		b = msgp.AppendArrayHeader(b, 5)
		b = msgp.AppendString(b, t.Name)
		b = msgp.AppendInt64(b, t.TimestampMs)
		b = msgp.AppendInt(b, int(t.Method))
		keys := t.Metadata.Keys()
		b = msgp.AppendMapHeader(b, uint32(len(keys)))
		for _, k := range keys {
			b = msgp.AppendString(b, k)
			b = msgp.AppendString(b, t.Metadata[k])
		}
		b = msgp.AppendArrayHeader(b, uint32(len(t.Samples)))
		for _, x := range t.Samples {
			b = msgp.AppendFloat64(b, x)
		}
	}

	b = msgp.AppendArrayHeader(b, uint32(len(p.Logs)))
	for _, l := range p.Logs {
		b = msgp.AppendArrayHeader(b, 4)
		b = msgp.AppendString(b, l.Path)
		b = msgp.AppendString(b, l.Value)
		b = msgp.AppendInt64(b, l.TimestampMs)
		keys := l.Metadata.Keys()
		b = msgp.AppendMapHeader(b, uint32(len(keys)))
		for _, k := range keys {
			b = msgp.AppendString(b, k)
			b = msgp.AppendString(b, l.Metadata[k])
		}
	}
	return b, nil
}

// UnmarshalPayload decodes one MessagePack-encoded Payload from the front
// of b, returning the payload and the remaining bytes.
func UnmarshalPayload(b []byte) (Payload, []byte, error) {
	var p Payload

	telemetrySz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return p, b, err
	}
	p.Telemetry = make([]TelemetryRecord, telemetrySz)
	for i := range p.Telemetry {
		var sz uint32
		sz, b, err = msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return p, b, err
		}
		if sz != 5 {
			return p, b, fmt.Errorf("metric: corrupt telemetry record: array size %d", sz)
		}
		t := &p.Telemetry[i]
		if t.Name, b, err = msgp.ReadStringBytes(b); err != nil {
			return p, b, err
		}
		if t.TimestampMs, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return p, b, err
		}
		var method int
		method, b, err = msgp.ReadIntBytes(b)
		if err != nil {
			return p, b, err
		}
		t.Method = AggregationMethod(method)

		var mapSz uint32
		mapSz, b, err = msgp.ReadMapHeaderBytes(b)
		if err != nil {
			return p, b, err
		}
		t.Metadata = make(TagMap, mapSz)
		for j := uint32(0); j < mapSz; j++ {
			var k, v string
			if k, b, err = msgp.ReadStringBytes(b); err != nil {
				return p, b, err
			}
			if v, b, err = msgp.ReadStringBytes(b); err != nil {
				return p, b, err
			}
			t.Metadata[k] = v
		}

		var sampleSz uint32
		sampleSz, b, err = msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return p, b, err
		}
		t.Samples = make([]float64, sampleSz)
		for j := range t.Samples {
			if t.Samples[j], b, err = msgp.ReadFloat64Bytes(b); err != nil {
				return p, b, err
			}
		}
	}

	var logSz uint32
	logSz, b, err = msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return p, b, err
	}
	p.Logs = make([]LogRecord, logSz)
	for i := range p.Logs {
		var sz uint32
		sz, b, err = msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return p, b, err
		}
		if sz != 4 {
			return p, b, fmt.Errorf("metric: corrupt log record: array size %d", sz)
		}
		l := &p.Logs[i]
		if l.Path, b, err = msgp.ReadStringBytes(b); err != nil {
			return p, b, err
		}
		if l.Value, b, err = msgp.ReadStringBytes(b); err != nil {
			return p, b, err
		}
		if l.TimestampMs, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return p, b, err
		}
		var mapSz uint32
		mapSz, b, err = msgp.ReadMapHeaderBytes(b)
		if err != nil {
			return p, b, err
		}
		l.Metadata = make(TagMap, mapSz)
		for j := uint32(0); j < mapSz; j++ {
			var k, v string
			if k, b, err = msgp.ReadStringBytes(b); err != nil {
				return p, b, err
			}
			if v, b, err = msgp.ReadStringBytes(b); err != nil {
				return p, b, err
			}
			l.Metadata[k] = v
		}
	}
	return p, b, nil
}
