// Package statsd parses StatsD wire-format datagrams into Metric values.
//
// Grammar per line: name ':' [sign] number '|' type ['@' sample_rate] '\n'
// with type in {c, g, ms, h, s}. The sample rate is also accepted as its
// own field, name ':' value '|' type '|@' sample_rate. This is adapted from telegraf's statsd
// input plugin's line grammar, simplified to this daemon's metric model
// (no per-field caching here — that's buckets' job) and grounded against
// the original StatsD source's kind mapping for delta-gauges and sample
// rate scaling.
package statsd

import (
	"math"
	"strconv"
	"strings"

	"github.com/flowlane/telemetryd/metric"
)

// Parser turns StatsD datagram payloads into Metric values. It carries no
// state of its own; a single Parser is safe for concurrent use.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser { return &Parser{} }

// Parse splits payload on newlines and parses each non-empty line into a
// Metric appended to out. It reports false, leaving out unchanged from the
// caller's perspective (any metrics decoded from this payload are
// discarded), if any line in the datagram is malformed — a StatsD
// datagram is accepted or rejected as a whole, never partially.
func (p *Parser) Parse(payload []byte, out []*metric.Metric) ([]*metric.Metric, bool) {
	start := len(out)
	text := string(payload)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m, ok := parseLine(line)
		if !ok {
			return out[:start], false
		}
		out = append(out, m)
	}
	return out, true
}

func parseLine(line string) (*metric.Metric, bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return nil, false
	}
	name := line[:colon]
	rest := line[colon+1:]

	bits := strings.Split(rest, "|")
	if len(bits) < 2 {
		return nil, false
	}
	valueStr, typ := bits[0], bits[1]
	sr, hasRate := "", len(bits) >= 3
	if at := strings.IndexByte(typ, '@'); at >= 0 {
		// Rate attached to the type: "c@0.5".
		typ, sr, hasRate = typ[:at], typ[at:], true
	} else if hasRate {
		// Rate as its own field: "c|@0.5".
		sr = bits[2]
	}

	switch typ {
	case "c", "g", "ms", "h", "s":
	default:
		return nil, false
	}

	sampleRate := 1.0
	if hasRate {
		if !strings.HasPrefix(sr, "@") {
			return nil, false
		}
		r, err := strconv.ParseFloat(sr[1:], 64)
		if err != nil || r <= 0 || r > 1 {
			return nil, false
		}
		sampleRate = r
	}

	if typ == "s" {
		// Sets are not aggregated by this daemon; treated as a unit counter.
		return metric.New(name, 1, metric.Counter), true
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil, false
	}

	switch typ {
	case "c":
		return metric.New(name, value/sampleRate, metric.Counter), true
	case "g":
		if len(valueStr) > 0 && (valueStr[0] == '+' || valueStr[0] == '-') {
			return metric.New(name, value, metric.DeltaGauge), true
		}
		return metric.New(name, value, metric.Gauge), true
	case "ms":
		m := metric.New(name, value, metric.Timer)
		repeatForSampleRate(m, value, sampleRate)
		return m, true
	case "h":
		m := metric.New(name, value, metric.Histogram)
		repeatForSampleRate(m, value, sampleRate)
		return m, true
	}
	return nil, false
}

// repeatForSampleRate replays a timer/histogram sample round(1/rate)-1
// additional times — the metric already carries one sample from New —
// so the aggregate reflects the estimated true event count.
func repeatForSampleRate(m *metric.Metric, value, sampleRate float64) {
	if sampleRate <= 0 || sampleRate >= 1 {
		return
	}
	repeat := int(math.Round(1 / sampleRate))
	for i := 1; i < repeat; i++ {
		m.AddSample(value)
	}
}
