package source

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"stageload/internal/records"
)

// Prefetch wraps src so that records are pulled ahead from a single
// background goroutine into a bounded channel. This overlaps source latency
// (HTTP page fetches) with store writes without touching the load engine,
// which stays strictly single-threaded and order-preserving: records come
// out in exactly the order src yields them, and the first source error ends
// the stream.
//
// The producer goroutine runs until the stream is drained or ctx is
// cancelled. A consumer that abandons the stream mid-way (a store error
// aborting the load, say) must cancel ctx to release the producer;
// otherwise it stays parked on the full buffer. Draining to the end
// releases it automatically.
func Prefetch(ctx context.Context, src Source, depth int) Source {
	if depth <= 0 {
		depth = 64
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &prefetch{ch: make(chan records.Record, depth), cancel: cancel}
	p.group, ctx = errgroup.WithContext(ctx)

	p.group.Go(func() error {
		defer close(p.ch)
		for {
			rec, err := src.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case p.ch <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return p
}

type prefetch struct {
	ch     chan records.Record
	group  *errgroup.Group
	cancel context.CancelFunc
}

func (p *prefetch) Next() (records.Record, error) {
	rec, ok := <-p.ch
	if !ok {
		p.cancel()
		if err := p.group.Wait(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return rec, nil
}
