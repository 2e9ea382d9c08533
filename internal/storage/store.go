// Package storage contains the store-agnostic contracts of the load engine:
// the Store interface consumed by batching strategies, the strategies
// themselves, and the load driver.
//
// Concrete backends (Postgres via pgx, embedded SQLite) live in
// subpackages. Strategies depend only on Store, so their batching behavior
// is testable against a fake with no database at all.
package storage

import (
	"context"
	"io"
)

// Store is the narrow destination interface consumed by the load engine.
//
// ExecMany's batching semantics (one round trip versus many) are
// store-defined. CopyText is the store's native bulk text-ingestion path;
// its delimiter, null sentinel, and escape rules are fixed by the encode
// package and must agree with the store-side parser exactly.
type Store interface {
	// Exec runs one statement with positional arguments.
	Exec(ctx context.Context, sql string, args ...any) error

	// ExecMany runs the statement once per argument set and reports rows
	// affected.
	ExecMany(ctx context.Context, sql string, argSets [][]any) (int64, error)

	// CopyText ingests delimited rows for the named table from r.
	CopyText(ctx context.Context, table string, columns []string, r io.Reader) (int64, error)

	// InTx runs fn against a transaction-scoped store, committing when fn
	// returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error

	// Placeholder returns the dialect's positional placeholder for the
	// 1-based argument index.
	Placeholder(i int) string

	// RecreateStaging drops the staging table if present and creates it
	// fresh with the fixed 17-column schema.
	RecreateStaging(ctx context.Context, table string) error

	// Count reports the table's row count. Verification surface for the
	// harness and tests.
	Count(ctx context.Context, table string) (int64, error)

	// SelectAll returns the named columns of every row. Row order is
	// unspecified. Verification surface for the harness and tests.
	SelectAll(ctx context.Context, table string, columns []string) ([][]any, error)

	// Close releases the underlying connections.
	Close()
}
