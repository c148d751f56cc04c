// Package postgres provides the PostgreSQL-backed store for the
// OpenShelf server, for deployments where several server processes
// share one database.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/openshelf-server/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const dialectPostgres = "postgres"

// Postgres error codes that map onto store sentinels.
const (
	pgCodeUniqueViolation      = "23505"
	pgCodeCheckViolation       = "23514"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
)

var builder = goqu.Dialect(dialectPostgres)

// dbtx is the subset of *sqlx.DB and *sqlx.Tx the query methods need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every store contract method against a dbtx.
// Inside a transaction forUpdate is set, and single-row reads take
// row locks so concurrent circulation operations serialize per row.
type queries struct {
	db        dbtx
	forUpdate bool
}

// Store provides PostgreSQL-backed persistence for the OpenShelf server.
type Store struct {
	queries
	sqlxDB *sqlx.DB
	logger *slog.Logger
}

// Tx is the transaction-scoped view handed to store.InTx callbacks.
type Tx struct {
	queries
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// Open connects to the database at dsn and runs schema migrations.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return New(db, logger), nil
}

// New wraps an already-connected database handle. It does not ping or
// migrate; Open is the normal entry point.
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		queries: queries{db: db},
		sqlxDB:  db,
		logger:  logger,
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.sqlxDB.Close()
}

// InTx runs fn inside one transaction. Single-row reads made through
// the transaction lock their rows with FOR UPDATE. Any error from fn
// rolls the transaction back and is returned unchanged.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.sqlxDB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Tx{queries: queries{db: tx, forUpdate: true}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", translateErr(err))
	}
	return nil
}

// translateErr maps Postgres errors onto the store sentinels. Unique
// violations become ErrAlreadyExists; check violations mean a counter
// bound was crossed under concurrency; serialization failures and
// deadlocks are retryable conflicts.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgCodeUniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	case pgCodeCheckViolation, pgCodeSerializationFailure, pgCodeDeadlockDetected:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

// sqlBuilder is the ToSQL method shared by goqu's dataset types.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (q *queries) exec(ctx context.Context, op string, ds sqlBuilder) (sql.Result, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateErr(err))
	}
	return res, nil
}

func (q *queries) queryRow(ctx context.Context, op string, ds sqlBuilder) (*sql.Row, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	return q.db.QueryRowContext(ctx, query, args...), nil
}

// scanner abstracts *sql.Row and *sql.Rows for the scanX helpers.
type scanner interface {
	Scan(dest ...any) error
}

// nullableTime converts a scanned sql.NullTime to the domain pointer form.
func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
