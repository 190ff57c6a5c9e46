package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"pressline/internal/config"
	"pressline/internal/services"
)

// Dialect selects SQL flavour and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps the shared database handle.
type DB struct {
	db      *sql.DB
	dialect Dialect
	source  string
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects using the configured storage driver and prepares the schema.
func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("store: config is required")
	}
	switch Dialect(cfg.Storage.Driver) {
	case DialectPostgres:
		return OpenPostgres(context.Background(), cfg.Storage.DSN)
	case DialectSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(context.Background(), cfg.DatabasePath())
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", fmt.Sprintf("unsupported driver %q", cfg.Storage.Driver), nil)
	}
}

// OpenSQLite opens (creating if needed) the SQLite database at path. Pragmas
// travel in the DSN so every pooled connection gets them; transactions take
// the write lock at BEGIN so concurrent writers wait on busy_timeout.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "busy_timeout(5000)")
	pragmas.Set("_txlock", "immediate")
	db, err := sql.Open("sqlite", "file:"+path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return finishOpen(ctx, &DB{db: db, dialect: DialectSQLite, source: path})
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "postgres dsn is empty", nil)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStorageUnavailable, "store", "open", "postgres unreachable", err)
	}
	return finishOpen(ctx, &DB{db: db, dialect: DialectPostgres, source: "postgres"})
}

func finishOpen(ctx context.Context, store *DB) (*DB, error) {
	if err := store.initSchema(ctx); err != nil {
		_ = store.db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect reports the active SQL dialect.
func (s *DB) Dialect() Dialect { return s.dialect }

// Source is the database file path (sqlite) or "postgres".
func (s *DB) Source() string { return s.source }

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (s *DB) Builder() sq.StatementBuilderType {
	if s.dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Ping verifies the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return services.Wrap(services.ErrStorageUnavailable, "store", "ping", "database not open", nil)
	}
	if err := s.db.PingContext(ensureContext(ctx)); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, "store", "ping", "", err)
	}
	return nil
}

// Exec runs a built statement outside a transaction, retrying on SQLITE_BUSY.
func (s *DB) Exec(ctx context.Context, stmt sq.Sqlizer) (sql.Result, error) {
	return Exec(ctx, s.db, stmt)
}

// Query runs a built select outside a transaction.
func (s *DB) Query(ctx context.Context, stmt sq.Sqlizer) (*sql.Rows, error) {
	return Query(ctx, s.db, stmt)
}

// QueryRow runs a built select and scans the single row into dest.
func (s *DB) QueryRow(ctx context.Context, stmt sq.Sqlizer, dest ...any) error {
	return QueryRow(ctx, s.db, stmt, dest...)
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// SQLITE_BUSY at begin or commit retries the whole transaction.
func (s *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Exec runs stmt on q, retrying on SQLITE_BUSY.
func Exec(ctx context.Context, q Querier, stmt sq.Sqlizer) (sql.Result, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	ctx = ensureContext(ctx)
	var res sql.Result
	err = retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = q.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// Query runs stmt on q, retrying on SQLITE_BUSY.
func Query(ctx context.Context, q Querier, stmt sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	err = retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = q.QueryContext(ctx, query, args...)
		return queryErr
	})
	return rows, err
}

// QueryRow runs stmt on q and scans one row into dest. sql.ErrNoRows is returned unchanged.
func QueryRow(ctx context.Context, q Querier, stmt sq.Sqlizer, dest ...any) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return q.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
