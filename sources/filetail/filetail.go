// Package filetail tails one or more growing log files and publishes
// each appended line as a LogLine event, using the same tailing library
// telegraf's own tail-based inputs are built on.
package filetail

import (
	"context"
	"sync"

	"github.com/influxdata/tail"

	"github.com/flowlane/telemetryd/hopper"
	"github.com/flowlane/telemetryd/internal/selfstat"
	"github.com/flowlane/telemetryd/logger"
	"github.com/flowlane/telemetryd/metric"
	"github.com/flowlane/telemetryd/sources/fanout"
)

// Config holds the set of file paths to tail.
type Config struct {
	Paths []string
}

// Source tails every configured path and publishes each line.
type Source struct {
	cfg     Config
	senders []*hopper.Sender
	log     logger.Logger

	linesRecv selfstat.Stat
}

// New returns a filetail source publishing tailed lines to senders.
func New(cfg Config, senders []*hopper.Sender, log logger.Logger) *Source {
	return &Source{
		cfg:       cfg,
		senders:   senders,
		log:       log,
		linesRecv: selfstat.Register("filetail", "lines_received", nil),
	}
}

// Run tails every configured path concurrently until ctx is done.
func (s *Source) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, path := range s.cfg.Paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := s.tailOne(ctx, path); err != nil {
				s.log.Errorf("filetail: tail %s: %v", path, err)
			}
		}(path)
	}
	wg.Wait()
	return nil
}

func (s *Source) tailOne(ctx context.Context, path string) error {
	t, err := tail.TailFile(path, tail.Config{Follow: true, ReOpen: true, MustExist: false})
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
			s.log.Errorf("filetail: %s: %v", path, line.Err)
			continue
		}
		s.linesRecv.Incr(1)
		l := metric.NewLogLine(path, line.Text)
		if err := fanout.Publish(s.senders, metric.LogEvent(l)); err != nil {
			s.log.Errorf("filetail: publish: %v", err)
		}
	}
	return nil
}
