package pipeline

import (
	"context"
	"sync"

	"github.com/flowlane/telemetryd/sinks"
	"github.com/flowlane/telemetryd/sinks/promexport"
)

// Run starts every source, filter, sink, and promexport HTTP endpoint in
// its own goroutine and blocks until ctx is cancelled and they have all
// returned. The first non-nil error any node reports is returned once
// every node has stopped; the rest are discarded after logging, since a
// single node's failure doesn't by itself justify tearing down the
// others mid-shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(p.sources)+len(p.filters)+len(p.sinks)+len(p.promServers))

	for _, src := range p.sources {
		wg.Add(1)
		go func(r runnable) {
			defer wg.Done()
			errs <- r.Run(ctx)
		}(src)
	}

	for _, st := range p.filters {
		wg.Add(1)
		go func(st filterStage) {
			defer wg.Done()
			errs <- runFilter(ctx, st.recv, st.f, st.out)
		}(st)
	}

	for _, st := range p.sinks {
		wg.Add(1)
		go func(st sinkStage) {
			defer wg.Done()
			errs <- sinks.Run(ctx, st.s, st.recv)
		}(st)
	}

	for _, ps := range p.promServers {
		wg.Add(1)
		go func(ps promServer) {
			defer wg.Done()
			errs <- promexport.Serve(ctx, ps.addr, ps.c)
		}(ps)
	}

	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		} else if err != nil {
			p.log.With("error", err).Warn("node stopped with an error after shutdown began")
		}
	}
	return first
}
