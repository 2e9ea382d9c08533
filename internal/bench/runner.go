package bench

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"stageload/internal/source"
	"stageload/internal/storage"
)

// Result summarizes one strategy's pass over the dataset.
type Result struct {
	Strategy    string
	Rows        int64
	Elapsed     time.Duration
	PeakAlloc   uint64
	Fingerprint uint64
	Verified    bool
}

// Runner drives every strategy over the same dataset and cross-checks the
// loaded table after each pass. Sources are single-pass, so NewSource must
// return a fresh one per call.
type Runner struct {
	Loader *storage.Loader

	// NewSource produces one fresh pass over the dataset.
	NewSource func() (source.Source, error)

	// Strategies to compare, run sequentially in order. Empty means all
	// four built-ins with the given page and buffer sizes.
	Strategies []storage.Strategy
}

// DefaultStrategies returns the four built-in strategies parameterized for
// a comparison run.
func DefaultStrategies(pageSize, bufSize int) []storage.Strategy {
	return []storage.Strategy{
		storage.OneByOne{},
		storage.Batch{},
		storage.Chunked{PageSize: pageSize},
		storage.CopyStream{BufferSize: bufSize},
	}
}

// Run executes every strategy sequentially and verifies each result against
// the fingerprint of the normalized input. The expected fingerprint costs
// one extra pass over the dataset up front.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	strategies := r.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies(0, 0)
	}

	if r.Loader.Sampler == nil {
		r.Loader.Sampler = &Sampler{}
	}

	src, err := r.NewSource()
	if err != nil {
		return nil, err
	}
	recs, err := source.Drain(src)
	if err != nil {
		return nil, fmt.Errorf("bench: drain reference pass: %w", err)
	}
	want, err := Expected(recs)
	if err != nil {
		return nil, fmt.Errorf("bench: normalize reference pass: %w", err)
	}

	table := r.Loader.Table
	if table == "" {
		table = storage.DefaultTable
	}

	results := make([]Result, 0, len(strategies))
	for _, strat := range strategies {
		src, err := r.NewSource()
		if err != nil {
			return results, err
		}

		out, err := r.Loader.Load(ctx, strat, src)
		if err != nil {
			return results, fmt.Errorf("bench: %s: %w", strat.Name(), err)
		}

		n, err := r.Loader.Store.Count(ctx, table)
		if err != nil {
			return results, fmt.Errorf("bench: %s: count: %w", strat.Name(), err)
		}
		rows, err := r.Loader.Store.SelectAll(ctx, table, storage.Columns)
		if err != nil {
			return results, fmt.Errorf("bench: %s: select: %w", strat.Name(), err)
		}

		got := Fingerprint(rows)
		results = append(results, Result{
			Strategy:    strat.Name(),
			Rows:        out.Rows,
			Elapsed:     out.Elapsed,
			PeakAlloc:   out.PeakAlloc,
			Fingerprint: got,
			Verified:    got == want && n == int64(len(recs)) && out.Rows == n,
		})
	}
	return results, nil
}

// WriteTable renders results as an aligned text table.
func WriteTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tROWS\tELAPSED\tPEAK ALLOC\tVERIFIED")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%v\n",
			res.Strategy, res.Rows,
			res.Elapsed.Truncate(time.Millisecond),
			humanBytes(res.PeakAlloc), res.Verified)
	}
	return tw.Flush()
}

func humanBytes(n uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
