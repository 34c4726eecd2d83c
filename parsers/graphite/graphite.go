// Package graphite parses the plaintext Graphite line protocol,
// `name SP value SP timestamp '\n'`, into Raw metrics carrying the
// supplied timestamp. Grounded on telegraf's own graphite parser for
// the line-splitting approach, simplified to this daemon's narrower
// grammar (no templates, no tag extensions — this daemon's native and
// StatsD sources already cover tagged ingestion).
package graphite

import (
	"strconv"
	"strings"

	"github.com/flowlane/telemetryd/metric"
)

// Parser parses Graphite plaintext lines. Stateless; safe for concurrent
// use.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser { return &Parser{} }

// ParseLine parses a single Graphite line into a Raw metric.
func (p *Parser) ParseLine(line string) (*metric.Metric, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, false
	}
	name := fields[0]
	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return metric.New(name, value, metric.Raw).WithTime(ts), true
}

// Parse splits payload on newlines and parses each non-empty line,
// appending successfully parsed metrics to out. Unlike the StatsD parser,
// a malformed Graphite line is skipped rather than rejecting the whole
// payload — Graphite's plaintext protocol is a continuous stream, not a
// bounded datagram, so there is no natural "whole unit" to reject.
func (p *Parser) Parse(payload []byte, out []*metric.Metric) []*metric.Metric {
	for _, line := range strings.Split(string(payload), "\n") {
		if m, ok := p.ParseLine(line); ok {
			out = append(out, m)
		}
	}
	return out
}
