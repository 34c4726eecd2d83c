// Package selfstat is a small self-monitoring registry: every source and
// sink registers a handful of internal counters/gauges (packets received,
// bytes read, connections accepted, parse time) here, and anything that
// wants to expose them (a sink, an admin endpoint) can range over
// Registered.
//
// Grounded on telegraf's own selfstat package (referenced throughout
// plugins/inputs/statsd/statsd.go as selfstat.Stat /
// selfstat.Register(measurement, field, tags)); this is a from-scratch
// reimplementation of that API surface since the upstream package itself
// wasn't part of the retrieved corpus.
package selfstat

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Stat is one named, tagged atomic counter or gauge.
type Stat struct {
	key   string
	value *int64
}

// Set overwrites the stat's current value.
func (s Stat) Set(v int64) {
	atomic.StoreInt64(s.value, v)
}

// Incr adds delta to the stat's current value; delta may be negative.
func (s Stat) Incr(delta int64) {
	atomic.AddInt64(s.value, delta)
}

// Get returns the stat's current value.
func (s Stat) Get() int64 {
	return atomic.LoadInt64(s.value)
}

var (
	mu       sync.Mutex
	registry = map[string]*registered{}
)

type registered struct {
	measurement string
	field       string
	tags        map[string]string
	value       *int64
}

// Register returns a Stat for (measurement, field, tags), creating it on
// first call and returning the same backing value on every subsequent
// call with identical arguments — mirroring telegraf's selfstat, which
// lets unrelated call sites register the same logical counter without
// coordinating a shared variable.
func Register(measurement, field string, tags map[string]string) Stat {
	mu.Lock()
	defer mu.Unlock()

	key := registryKey(measurement, field, tags)
	r, ok := registry[key]
	if !ok {
		r = &registered{
			measurement: measurement,
			field:       field,
			tags:        cloneTags(tags),
			value:       new(int64),
		}
		registry[key] = r
	}
	return Stat{key: key, value: r.value}
}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func registryKey(measurement, field string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := measurement + "\x00" + field
	for _, k := range keys {
		key += "\x00" + k + "=" + tags[k]
	}
	return key
}

// Point is a snapshot of one registered stat, suitable for emission by a
// sink that wants to expose internal metrics alongside user telemetry.
type Point struct {
	Measurement string
	Field       string
	Tags        map[string]string
	Value       int64
}

// Registered returns a snapshot of every stat registered so far, in a
// deterministic (sorted-key) order.
func Registered() []Point {
	mu.Lock()
	defer mu.Unlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Point, 0, len(registry))
	for _, k := range keys {
		r := registry[k]
		out = append(out, Point{
			Measurement: r.measurement,
			Field:       r.field,
			Tags:        cloneTags(r.tags),
			Value:       atomic.LoadInt64(r.value),
		})
	}
	return out
}
