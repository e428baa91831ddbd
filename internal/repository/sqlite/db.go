package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/tx"
)

type Config struct {
	Path         string        `mapstructure:"path"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// DB holds a single connection: SQLite allows one writer, and every statement inside a
// transaction has to reuse the transaction's connection.
type DB struct {
	SQL          *sql.DB
	QueryTimeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	name         TEXT    NOT NULL,
	url          TEXT    NOT NULL,
	status       TEXT    NOT NULL DEFAULT 'up',
	uptime       REAL    NOT NULL DEFAULT 100,
	last_check   INTEGER,
	interval_sec INTEGER NOT NULL DEFAULT 300,
	timeout_sec  INTEGER NOT NULL DEFAULT 0,
	active       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS checks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint_id INTEGER NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
	checked_at  INTEGER NOT NULL,
	is_up       INTEGER NOT NULL,
	latency_ms  INTEGER NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_checks_endpoint_checked_at ON checks (endpoint_id, checked_at);

CREATE TABLE IF NOT EXISTS status_pages (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	slug    TEXT    NOT NULL UNIQUE,
	name    TEXT    NOT NULL,
	status  TEXT    NOT NULL DEFAULT 'operational'
);

CREATE TABLE IF NOT EXISTS status_page_endpoints (
	status_page_id INTEGER NOT NULL REFERENCES status_pages(id) ON DELETE CASCADE,
	endpoint_id    INTEGER NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
	PRIMARY KEY (status_page_id, endpoint_id)
);
CREATE INDEX IF NOT EXISTS idx_status_page_endpoints_endpoint ON status_page_endpoints (endpoint_id);

CREATE TABLE IF NOT EXISTS incidents (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	status_page_id      INTEGER NOT NULL REFERENCES status_pages(id) ON DELETE CASCADE,
	title               TEXT    NOT NULL,
	status              TEXT    NOT NULL,
	impact              TEXT    NOT NULL,
	started_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL,
	resolved_at         INTEGER,
	affected_components TEXT    NOT NULL DEFAULT '[]',
	timeline            TEXT    NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_incidents_page_status ON incidents (status_page_id, status);
`

func New(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{SQL: db, QueryTimeout: cfg.QueryTimeout}, nil
}

func (db *DB) Close() error { return db.SQL.Close() }

func (db *DB) Ping(ctx context.Context) error { return db.SQL.PingContext(ctx) }

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}

type txKey struct{}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if t, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return t
	}
	return db.SQL
}

var _ tx.Transactor = (*Transactor)(nil)

type Transactor struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) *Transactor {
	return &Transactor{db: db, logger: logger}
}

func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	sqlTx, err := t.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if txErr != nil {
			if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := sqlTx.Commit(); err != nil {
			t.logger.Error("commit", zap.Error(err))
			txErr = fmt.Errorf("commit: %w", err)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, sqlTx)); err != nil {
		return fmt.Errorf("function execution error: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("scan %s: %w", what, err)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}
