package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultDBTimeout bounds how long Open waits for the database to answer.
const DefaultDBTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a seed uid does not exist.
	ErrNotFound = errors.New("seed not found")
	// ErrNameRequired is returned when a seed is saved without a name.
	ErrNameRequired = errors.New("seed name is required")
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type DB struct {
	sql     *sql.DB
	dialect dialect
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS seeds (
  id           INTEGER PRIMARY KEY,
  uid          TEXT NOT NULL UNIQUE,
  seed_name    TEXT NOT NULL,
  variety_name TEXT NOT NULL DEFAULT '',
  fields       TEXT NOT NULL DEFAULT '{}',
  created_at   DATETIME NOT NULL,
  updated_at   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_seeds_name ON seeds(seed_name, variety_name)`,
	`CREATE TABLE IF NOT EXISTS seed_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL,
  seed_uid    TEXT NOT NULL,
  seed_name   TEXT NOT NULL,
  field_key   TEXT NOT NULL,
  old_value   TEXT,
  new_value   TEXT,
  reason      TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_time ON seed_changes(occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_seed ON seed_changes(seed_uid, occurred_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS seeds (
  id           BIGSERIAL PRIMARY KEY,
  uid          TEXT NOT NULL UNIQUE,
  seed_name    TEXT NOT NULL,
  variety_name TEXT NOT NULL DEFAULT '',
  fields       TEXT NOT NULL DEFAULT '{}',
  created_at   TIMESTAMPTZ NOT NULL,
  updated_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_seeds_name ON seeds(seed_name, variety_name)`,
	`CREATE TABLE IF NOT EXISTS seed_changes (
  id          BIGSERIAL PRIMARY KEY,
  occurred_at TIMESTAMPTZ NOT NULL,
  seed_uid    TEXT NOT NULL,
  seed_name   TEXT NOT NULL,
  field_key   TEXT NOT NULL,
  old_value   TEXT,
  new_value   TEXT,
  reason      TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_time ON seed_changes(occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_seed ON seed_changes(seed_uid, occurred_at)`,
}

// IsPostgresDSN reports whether dsn names a PostgreSQL database rather than a
// SQLite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to dsn and makes sure the schema exists. postgres:// URLs use
// pgx, anything else is treated as a SQLite file path.
func Open(dsn string) (*DB, error) {
	d := &DB{}
	var (
		db     *sql.DB
		err    error
		schema []string
	)
	if IsPostgresDSN(dsn) {
		d.dialect = dialectPostgres
		schema = postgresSchema
		db, err = sql.Open("pgx", dsn)
	} else {
		d.dialect = dialectSQLite
		schema = sqliteSchema
		db, err = sql.Open("sqlite", "file:"+dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate")
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDBTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	d.sql = db
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (d *DB) rebind(q string) string {
	if d.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
