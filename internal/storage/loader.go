package storage

import (
	"context"
	"log"
	"time"

	"stageload/internal/metrics"
	"stageload/internal/source"
)

// Sampler observes a load's memory footprint. Start begins sampling; Stop
// ends it and reports the peak heap growth in bytes. Implemented by
// bench.Sampler; the zero Loader carries none and skips sampling.
type Sampler interface {
	Start()
	Stop() uint64
}

// Outcome summarizes one completed load. PeakAlloc is zero unless a Sampler
// was attached.
type Outcome struct {
	Rows      int64
	Elapsed   time.Duration
	PeakAlloc uint64
}

// Loader is the load driver: it owns schema recreation and drives exactly
// one strategy per Load call.
type Loader struct {
	Store Store

	// Table is the staging table name; empty means DefaultTable.
	Table string

	// SingleTx wraps schema recreation and the whole strategy run in one
	// transaction, so a mid-load failure leaves nothing committed. When
	// false each statement autocommits, matching the store's native
	// behavior: a failed one_by_one load then leaves prior rows in place,
	// while single-bulk-statement strategies remain atomic either way.
	SingleTx bool

	// Sampler, when set, measures peak heap growth across the load.
	Sampler Sampler
}

// Load recreates the staging table and runs one strategy over src. Errors
// from normalization or the store propagate unchanged; there is never a
// partial-success outcome.
func (l *Loader) Load(ctx context.Context, strat Strategy, src source.Source) (Outcome, error) {
	table := l.Table
	if table == "" {
		table = DefaultTable
	}

	if l.Sampler != nil {
		l.Sampler.Start()
	}
	start := time.Now()

	var rows int64
	run := func(st Store) error {
		if err := st.RecreateStaging(ctx, table); err != nil {
			return err
		}
		var err error
		rows, err = strat.Run(ctx, st, table, src)
		return err
	}

	var err error
	if l.SingleTx {
		err = l.Store.InTx(ctx, run)
	} else {
		err = run(l.Store)
	}

	out := Outcome{Rows: rows, Elapsed: time.Since(start)}
	if l.Sampler != nil {
		out.PeakAlloc = l.Sampler.Stop()
	}

	metrics.RecordLoad(strat.Name(), err, out.Elapsed)
	if err != nil {
		log.Printf("load: strategy=%s table=%s failed after %s: %v",
			strat.Name(), table, out.Elapsed.Truncate(time.Millisecond), err)
		return Outcome{}, err
	}

	metrics.RecordRows(strat.Name(), "inserted", rows)
	log.Printf("load: strategy=%s table=%s rows=%d elapsed=%s",
		strat.Name(), table, rows, out.Elapsed.Truncate(time.Millisecond))
	return out, nil
}
