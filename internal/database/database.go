package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	"modernc.org/sqlite"               // SQLite driver ("sqlite")
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect identifies the SQL flavour behind a DB handle.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a *sql.DB and rewrites '?' placeholders for the active dialect,
// so services can share one set of queries.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New opens a connection pool for dsn. postgres:// and postgresql:// URLs use
// pgx; anything else is treated as a SQLite file path.
func New(dsn string) (*DB, error) {
	dialect, driver, source := resolve(dsn)

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		// SQLite allows a single writer; serialize access instead of surfacing SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db, dialect: dialect}, nil
}

func resolve(dsn string) (Dialect, string, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres, "pgx", dsn
	}
	path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return DialectSQLite, "sqlite", "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Dialect reports the SQL dialect of the underlying store.
func (d *DB) Dialect() Dialect { return d.dialect }

// SQL exposes the raw handle for tooling such as migrations.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the underlying pool.
func (d *DB) Close() error { return d.db.Close() }

// PingContext verifies the store is reachable.
func (d *DB) PingContext(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.Rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.Rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.Rebind(query), args...)
}

// Rebind converts '?' placeholders to $N for PostgreSQL. Queries in this
// repository never embed a literal '?'.
func (d *DB) Rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique constraint violation in
// either supported store.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

// Describe returns a log-safe description of the store location.
func Describe(dsn string) string {
	dialect, _, source := resolve(dsn)
	if dialect == DialectPostgres {
		if cfg, err := pgconn.ParseConfig(dsn); err == nil {
			return fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
		}
		return "postgres"
	}
	return strings.TrimPrefix(source[:strings.IndexByte(source, '?')], "file:")
}
