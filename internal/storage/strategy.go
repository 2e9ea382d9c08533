package storage

import (
	"context"
	"fmt"
	"io"

	"stageload/internal/encode"
	"stageload/internal/normalize"
	"stageload/internal/source"
)

// Strategy decides how a record stream is grouped and handed to the store.
// Strategies are stateless policy values: they own no data, normalize every
// record before it reaches the store, preserve source order, and abort on
// the first normalization or store error (no row skipping).
type Strategy interface {
	Name() string
	Run(ctx context.Context, st Store, table string, src source.Source) (int64, error)
}

// NewStrategy resolves a strategy by its configuration name. pageSize
// parameterizes the chunked variant, bufSize the streamed copy variant.
func NewStrategy(name string, pageSize, bufSize int) (Strategy, error) {
	switch name {
	case "one_by_one":
		return OneByOne{}, nil
	case "batch":
		return Batch{}, nil
	case "chunked":
		return Chunked{PageSize: pageSize}, nil
	case "copy_stream":
		return CopyStream{BufferSize: bufSize}, nil
	default:
		return nil, fmt.Errorf("storage: unknown strategy %q", name)
	}
}

// OneByOne issues one insert per normalized row. Baseline: O(n) round
// trips, O(1) rows buffered.
type OneByOne struct{}

func (OneByOne) Name() string { return "one_by_one" }

func (OneByOne) Run(ctx context.Context, st Store, table string, src source.Source) (int64, error) {
	insert := InsertSQL(st, table)
	var total int64
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		row, err := normalize.Normalize(rec)
		if err != nil {
			return total, err
		}
		if err := st.Exec(ctx, insert, row.Values()...); err != nil {
			return total, fmt.Errorf("insert row id=%d: %w", row.ID, err)
		}
		total++
	}
}

// Batch materializes the entire normalized input in memory, then issues a
// single bulk call. Fewest round trips; peak memory O(n).
type Batch struct{}

func (Batch) Name() string { return "batch" }

func (Batch) Run(ctx context.Context, st Store, table string, src source.Source) (int64, error) {
	var argSets [][]any
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		row, err := normalize.Normalize(rec)
		if err != nil {
			return 0, err
		}
		argSets = append(argSets, row.Values())
	}
	return st.ExecMany(ctx, InsertSQL(st, table), argSets)
}

// Chunked streams normalized rows into fixed-size pages, issuing one bulk
// call per page. The caller never holds more than one page; the backing
// array is reused across flushes.
type Chunked struct {
	// PageSize is the rows per bulk call. Non-positive falls back to 100.
	PageSize int
}

func (Chunked) Name() string { return "chunked" }

func (c Chunked) Run(ctx context.Context, st Store, table string, src source.Source) (int64, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	insert := InsertSQL(st, table)
	var total int64
	page := make([][]any, 0, pageSize)

	flush := func() error {
		if len(page) == 0 {
			return nil
		}
		n, err := st.ExecMany(ctx, insert, page)
		total += n
		page = page[:0]
		return err
	}

	for {
		rec, err := src.Next()
		if err == io.EOF {
			return total, flush()
		}
		if err != nil {
			return total, err
		}
		row, err := normalize.Normalize(rec)
		if err != nil {
			return total, err
		}
		page = append(page, row.Values())
		if len(page) >= pageSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
}

// CopyStream encodes each normalized row as delimited text and hands one
// continuous stream to the store's bulk text-load path. Peak memory is
// O(BufferSize) regardless of row count — the only variant with a constant
// memory bound.
type CopyStream struct {
	// BufferSize bounds the bytes served per read from the text-stream
	// adapter. Non-positive falls back to 8192.
	BufferSize int
}

func (CopyStream) Name() string { return "copy_stream" }

func (c CopyStream) Run(ctx context.Context, st Store, table string, src source.Source) (int64, error) {
	bufSize := c.BufferSize
	if bufSize <= 0 {
		bufSize = 8192
	}

	lines := func() (string, error) {
		rec, err := src.Next()
		if err != nil {
			return "", err // io.EOF ends the stream
		}
		row, err := normalize.Normalize(rec)
		if err != nil {
			return "", err
		}
		return encode.EncodeRow(row, encode.Delimiter), nil
	}

	return st.CopyText(ctx, table, Columns, encode.NewLineReader(lines, bufSize))
}
