// Package postgres implements the storage.Store contract on Postgres using
// pgx v5. The bulk text path maps CopyText onto COPY ... FROM STDIN in text
// format, so the encoder's delimiter, null sentinel, and escapes must agree
// with the server-side parser.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stageload/internal/encode"
	"stageload/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the query surface shared by a pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// session implements the statement-level half of storage.Store on any
// querier. Repo and txRepo embed it and add the connection-scoped parts
// (CopyText, InTx, Close).
type session struct {
	q querier
}

// Repo is a pooled Postgres store.
type Repo struct {
	session
	pool *pgxpool.Pool
}

var _ storage.Store = (*Repo)(nil)

// Open connects a pool for dsn and pings it once so a bad DSN fails here
// rather than on the first load.
func Open(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{session: session{q: pool}, pool: pool}, nil
}

func (s session) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := s.q.Exec(ctx, sql, args...); err != nil {
		return pgErrf("exec", err)
	}
	return nil
}

// ExecMany queues every argument set into one pgx batch, so the whole page
// travels in a single round trip regardless of its size.
func (s session) ExecMany(ctx context.Context, sql string, argSets [][]any) (int64, error) {
	if len(argSets) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, args := range argSets {
		b.Queue(sql, args...)
	}

	br := s.q.SendBatch(ctx, b)
	var total int64
	for range argSets {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return total, pgErrf("batch insert", err)
		}
		total += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return total, pgErrf("batch close", err)
	}
	return total, nil
}

func (session) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func (s session) RecreateStaging(ctx context.Context, table string) error {
	if _, err := s.q.Exec(ctx, "DROP TABLE IF EXISTS "+pgFQN(table)); err != nil {
		return pgErrf("drop staging", err)
	}
	if _, err := s.q.Exec(ctx, createStagingSQL(table)); err != nil {
		return pgErrf("create staging", err)
	}
	return nil
}

func (s session) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	rows, err := s.q.Query(ctx, "SELECT count(*) FROM "+pgFQN(table))
	if err != nil {
		return 0, pgErrf("count", err)
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

// SelectAll returns every row with values coerced to comparison-friendly Go
// types: DECIMAL columns come back as float64 and first_brewed as its
// "YYYY-MM-DD" text form, so results line up with what other backends store.
func (s session) SelectAll(ctx context.Context, table string, columns []string) ([][]any, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s", selectList(columns), pgFQN(table))
	rows, err := s.q.Query(ctx, sql)
	if err != nil {
		return nil, pgErrf("select all", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("select all: read row: %w", err)
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// CopyText streams r straight into COPY FROM STDIN on a dedicated pooled
// connection. The reader is pulled incrementally, so memory stays bounded by
// the reader's own buffer.
func (r *Repo) CopyText(ctx context.Context, table string, columns []string, src io.Reader) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("copy: acquire: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyFrom(ctx, src, copyTextSQL(table, columns))
	if err != nil {
		return 0, pgErrf("copy", err)
	}
	return tag.RowsAffected(), nil
}

// InTx runs fn against a transaction-scoped store. fn returning an error
// rolls everything back, including the staging recreation.
func (r *Repo) InTx(ctx context.Context, fn func(storage.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txRepo{session: session{q: tx}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repo) Close() { r.pool.Close() }

// txRepo is the transaction-scoped store handed to InTx callbacks.
type txRepo struct {
	session
	tx pgx.Tx
}

var _ storage.Store = (*txRepo)(nil)

func (t *txRepo) CopyText(ctx context.Context, table string, columns []string, src io.Reader) (int64, error) {
	tag, err := t.tx.Conn().PgConn().CopyFrom(ctx, src, copyTextSQL(table, columns))
	if err != nil {
		return 0, pgErrf("copy", err)
	}
	return tag.RowsAffected(), nil
}

// InTx inside a transaction reuses the surrounding one; Postgres savepoints
// are not needed for the all-or-nothing load semantics here.
func (t *txRepo) InTx(ctx context.Context, fn func(storage.Store) error) error {
	return fn(t)
}

func (t *txRepo) Close() {}

// createStagingSQL builds the fixed 17-column staging DDL.
func createStagingSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	id                  INTEGER,
	name                TEXT,
	tagline             TEXT,
	first_brewed        DATE,
	description         TEXT,
	image_url           TEXT,
	abv                 DECIMAL,
	ibu                 DECIMAL,
	target_fg           DECIMAL,
	target_og           DECIMAL,
	ebc                 DECIMAL,
	srm                 DECIMAL,
	ph                  DECIMAL,
	attenuation_level   DECIMAL,
	brewers_tips        TEXT,
	contributed_by      TEXT,
	volume              INTEGER
)`, pgFQN(table))
}

// copyTextSQL builds the COPY statement matching the encode package's wire
// format exactly: text format, '|' delimiter, \N nulls.
func copyTextSQL(table string, columns []string) string {
	return fmt.Sprintf(
		`COPY %s (%s) FROM STDIN (FORMAT text, DELIMITER '%c', NULL '%s')`,
		pgFQN(table), strings.Join(mapIdent(columns), ", "),
		encode.Delimiter, encode.NullToken,
	)
}

// decimalColumns are cast to float8 in SelectAll so pgx yields float64
// instead of pgtype.Numeric.
var decimalColumns = map[string]bool{
	"abv": true, "ibu": true, "target_fg": true, "target_og": true,
	"ebc": true, "srm": true, "ph": true, "attenuation_level": true,
}

func selectList(columns []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		switch {
		case decimalColumns[col]:
			parts[i] = pgIdent(col) + "::float8"
		case col == "first_brewed":
			parts[i] = pgIdent(col) + "::text"
		default:
			parts[i] = pgIdent(col)
		}
	}
	return strings.Join(parts, ", ")
}

// pgErrf wraps err, surfacing the Postgres detail line when present. COPY
// format errors put the offending line context there.
func pgErrf(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s: %s: %s (%s)", op, pgErr.Message, pgErr.Detail, pgErr.SQLState())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "etl.staging_beers" to
// "etl"."staging_beers". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
