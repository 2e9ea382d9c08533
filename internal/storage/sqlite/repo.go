// Package sqlite implements the storage.Store contract on SQLite via
// database/sql and the cgo-free modernc.org driver. SQLite has no native
// bulk text-load protocol, so CopyText decodes the delimited stream line by
// line and replays it as prepared inserts inside one transaction. That keeps
// every strategy, including the streamed copy, runnable against an embedded
// in-memory database.
package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"stageload/internal/encode"
	"stageload/internal/storage"

	_ "modernc.org/sqlite"
)

// runner is the statement surface shared by *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type session struct {
	r runner
}

// Repo is a SQLite-backed store.
type Repo struct {
	session
	db *sql.DB
}

var _ storage.Store = (*Repo)(nil)

// Open opens dsn (a file path, "file:..." URI, or ":memory:") and pings it.
// The pool is pinned to a single connection: an in-memory database exists
// per-connection, and staging loads are single-writer anyway.
func Open(ctx context.Context, dsn string) (*Repo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repo{session: session{r: db}, db: db}, nil
}

func (s session) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.r.ExecContext(ctx, query, convertArgs(args)...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// execMany replays one prepared statement per argument set on the session's
// runner. Transaction scoping is the caller's concern.
func (s session) execMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	stmt, err := s.r.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, args := range argSets {
		res, err := stmt.ExecContext(ctx, convertArgs(args)...)
		if err != nil {
			return total, fmt.Errorf("batch insert: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// ExecMany wraps the page in one transaction; row-at-a-time autocommit on
// SQLite would fsync per insert.
func (r *Repo) ExecMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	if len(argSets) == 0 {
		return 0, nil
	}
	var total int64
	err := r.InTx(ctx, func(st storage.Store) error {
		n, err := st.ExecMany(ctx, query, argSets)
		total = n
		return err
	})
	return total, err
}

// copyText decodes the delimited stream line by line and inserts each row
// through one prepared statement. Only one line is held at a time.
func (s session) copyText(ctx context.Context, table string, columns []string, r io.Reader) (int64, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	stmt, err := s.r.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	var total int64
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return total, readErr
		}
		line = strings.TrimSuffix(line, "\n")
		if line != "" {
			fields := encode.DecodeLine(line, encode.Delimiter)
			if len(fields) != len(columns) {
				return total, fmt.Errorf("copy: line has %d fields, want %d", len(fields), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, fields...); err != nil {
				return total, fmt.Errorf("copy insert: %w", err)
			}
			total++
		}
		if readErr == io.EOF {
			return total, nil
		}
	}
}

// CopyText ingests the whole stream inside one transaction so a malformed
// line leaves nothing behind.
func (r *Repo) CopyText(ctx context.Context, table string, columns []string, src io.Reader) (int64, error) {
	var total int64
	err := r.InTx(ctx, func(st storage.Store) error {
		n, err := st.CopyText(ctx, table, columns, src)
		total = n
		return err
	})
	return total, err
}

func (session) Placeholder(int) string { return "?" }

func (s session) RecreateStaging(ctx context.Context, table string) error {
	if _, err := s.r.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop staging: %w", err)
	}
	if _, err := s.r.ExecContext(ctx, createStagingSQL(table)); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}
	return nil
}

func (s session) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	rows, err := s.r.QueryContext(ctx, "SELECT count(*) FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, fmt.Errorf("count: no row")
	}
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return n, rows.Err()
}

// SelectAll returns every row. SQLite's dynamic typing already yields int64,
// float64, and text dates in their canonical comparison forms.
func (s session) SelectAll(ctx context.Context, table string, columns []string) ([][]any, error) {
	rows, err := s.r.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("select all: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("select all: scan: %w", err)
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// InTx runs fn against a transaction-scoped store.
func (r *Repo) InTx(ctx context.Context, fn func(storage.Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txRepo{session: session{r: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repo) Close() { r.db.Close() }

// txRepo is the transaction-scoped store handed to InTx callbacks.
type txRepo struct {
	session
}

var _ storage.Store = (*txRepo)(nil)

func (t *txRepo) ExecMany(ctx context.Context, query string, argSets [][]any) (int64, error) {
	return t.execMany(ctx, query, argSets)
}

func (t *txRepo) CopyText(ctx context.Context, table string, columns []string, src io.Reader) (int64, error) {
	return t.copyText(ctx, table, columns, src)
}

// InTx inside a transaction reuses the surrounding one.
func (t *txRepo) InTx(ctx context.Context, fn func(storage.Store) error) error {
	return fn(t)
}

func (t *txRepo) Close() {}

// createStagingSQL builds the staging DDL in SQLite's type vocabulary;
// decimals map to REAL and dates are stored as "YYYY-MM-DD" text under the
// column's numeric-free affinity.
func createStagingSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	id                  INTEGER,
	name                TEXT,
	tagline             TEXT,
	first_brewed        TEXT,
	description         TEXT,
	image_url           TEXT,
	abv                 REAL,
	ibu                 REAL,
	target_fg           REAL,
	target_og           REAL,
	ebc                 REAL,
	srm                 REAL,
	ph                  REAL,
	attenuation_level   REAL,
	brewers_tips        TEXT,
	contributed_by      TEXT,
	volume              INTEGER
)`, table)
}

// convertArgs rewrites statement arguments the driver has no mapping for:
// dates become their "YYYY-MM-DD" text form, matching what the text-copy
// path stores.
func convertArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if t, ok := a.(time.Time); ok {
			out[i] = t.Format("2006-01-02")
			continue
		}
		out[i] = a
	}
	return out
}
