package metric

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg and UnmarshalMsg are hand-written MessagePack codecs (the shape
// msgp's code generator would otherwise produce) for the three wire-facing
// types in this package. They back both the hopper durable channel's
// on-disk payload format and the native sink/source TCP frames, so the two
// components share one serialization concern instead of inventing two.

// MarshalMsg appends the MessagePack encoding of e to b.
func (e Event) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 3)
	b = msgp.AppendInt(b, int(e.Kind))
	if e.Metric != nil {
		b = msgp.AppendBool(b, true)
		var err error
		if b, err = e.Metric.MarshalMsg(b); err != nil {
			return b, err
		}
	} else {
		b = msgp.AppendBool(b, false)
	}
	if e.Log != nil {
		b = msgp.AppendBool(b, true)
		var err error
		if b, err = e.Log.MarshalMsg(b); err != nil {
			return b, err
		}
	} else {
		b = msgp.AppendBool(b, false)
	}
	return b, nil
}

// UnmarshalEvent decodes one MessagePack-encoded Event from the front of b,
// returning the event and the remaining bytes.
func UnmarshalEvent(b []byte) (Event, []byte, error) {
	var ev Event
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return ev, b, err
	}
	if sz != 3 {
		return ev, b, fmt.Errorf("metric: corrupt event frame: array size %d", sz)
	}
	kindInt, b, err := msgp.ReadIntBytes(b)
	if err != nil {
		return ev, b, err
	}
	ev.Kind = EventKind(kindInt)

	hasMetric, b, err := msgp.ReadBoolBytes(b)
	if err != nil {
		return ev, b, err
	}
	if hasMetric {
		m := &Metric{}
		if b, err = m.UnmarshalMsg(b); err != nil {
			return ev, b, err
		}
		ev.Metric = m
	}

	hasLog, b, err := msgp.ReadBoolBytes(b)
	if err != nil {
		return ev, b, err
	}
	if hasLog {
		l := &LogLine{}
		if b, err = l.UnmarshalMsg(b); err != nil {
			return ev, b, err
		}
		ev.Log = l
	}
	return ev, b, nil
}

// MarshalMsg appends the MessagePack encoding of m to b.
func (m *Metric) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 5)
	b = msgp.AppendInt(b, int(m.Kind))
	b = msgp.AppendString(b, m.Name)
	b = msgp.AppendInt64(b, m.Time)
	keys := m.Tags.Keys()
	b = msgp.AppendMapHeader(b, uint32(len(keys)))
	for _, k := range keys {
		b = msgp.AppendString(b, k)
		b = msgp.AppendString(b, m.Tags[k])
	}
	b = msgp.AppendArrayHeader(b, uint32(len(m.Samples)))
	for _, x := range m.Samples {
		b = msgp.AppendFloat64(b, x)
	}
	return b, nil
}

// UnmarshalMsg decodes a MessagePack-encoded Metric from the front of b into
// m, returning the remaining bytes.
func (m *Metric) UnmarshalMsg(b []byte) ([]byte, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if sz != 5 {
		return b, fmt.Errorf("metric: corrupt metric frame: array size %d", sz)
	}
	kindInt, b, err := msgp.ReadIntBytes(b)
	if err != nil {
		return b, err
	}
	m.Kind = Kind(kindInt)

	if m.Name, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if m.Time, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return b, err
	}

	tagSz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	m.Tags = make(TagMap, tagSz)
	for i := uint32(0); i < tagSz; i++ {
		var k, v string
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		m.Tags[k] = v
	}

	sampleSz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	m.Samples = make([]float64, sampleSz)
	for i := range m.Samples {
		if m.Samples[i], b, err = msgp.ReadFloat64Bytes(b); err != nil {
			return b, err
		}
	}
	m.summary = nil
	return b, nil
}

// MarshalMsg appends the MessagePack encoding of l to b.
func (l *LogLine) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 4)
	b = msgp.AppendInt64(b, l.Time)
	b = msgp.AppendString(b, l.Path)
	b = msgp.AppendString(b, l.Value)
	keys := l.Tags.Keys()
	b = msgp.AppendMapHeader(b, uint32(len(keys)))
	for _, k := range keys {
		b = msgp.AppendString(b, k)
		b = msgp.AppendString(b, l.Tags[k])
	}
	return b, nil
}

// UnmarshalMsg decodes a MessagePack-encoded LogLine from the front of b
// into l, returning the remaining bytes.
func (l *LogLine) UnmarshalMsg(b []byte) ([]byte, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if sz != 4 {
		return b, fmt.Errorf("metric: corrupt logline frame: array size %d", sz)
	}
	if l.Time, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return b, err
	}
	if l.Path, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if l.Value, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	tagSz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	l.Tags = make(TagMap, tagSz)
	for i := uint32(0); i < tagSz; i++ {
		var k, v string
		if k, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		if v, b, err = msgp.ReadStringBytes(b); err != nil {
			return b, err
		}
		l.Tags[k] = v
	}
	return b, nil
}
