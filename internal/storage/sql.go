// internal/storage/sql.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Dialect is a SQL flavour supported by SQLStore
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DefaultTable is the table SQLStore keeps its values in
const DefaultTable = "azon_kv"

// driverName returns the database/sql driver registered for the dialect
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "postgres", nil
	case DialectMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported SQL dialect %q", d)
}

type statements struct {
	create string
	get    string
	upsert string
	remove string
}

func (d Dialect) statements(table string) statements {
	switch d {
	case DialectPostgres:
		return statements{
			create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
				store_key TEXT PRIMARY KEY,
				store_value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			get: `SELECT store_value FROM ` + table + ` WHERE store_key = $1`,
			upsert: `INSERT INTO ` + table + ` (store_key, store_value, updated_at) VALUES ($1, $2, $3)
				ON CONFLICT (store_key) DO UPDATE SET store_value = EXCLUDED.store_value, updated_at = EXCLUDED.updated_at`,
			remove: `DELETE FROM ` + table + ` WHERE store_key = $1`,
		}
	case DialectMySQL:
		return statements{
			create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
				store_key VARCHAR(255) PRIMARY KEY,
				store_value LONGTEXT NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			get: `SELECT store_value FROM ` + table + ` WHERE store_key = ?`,
			upsert: `INSERT INTO ` + table + ` (store_key, store_value, updated_at) VALUES (?, ?, ?)
				ON DUPLICATE KEY UPDATE store_value = VALUES(store_value), updated_at = VALUES(updated_at)`,
			remove: `DELETE FROM ` + table + ` WHERE store_key = ?`,
		}
	default:
		return statements{
			create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
				store_key TEXT PRIMARY KEY,
				store_value TEXT NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			get: `SELECT store_value FROM ` + table + ` WHERE store_key = ?`,
			upsert: `INSERT INTO ` + table + ` (store_key, store_value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT (store_key) DO UPDATE SET store_value = excluded.store_value, updated_at = excluded.updated_at`,
			remove: `DELETE FROM ` + table + ` WHERE store_key = ?`,
		}
	}
}

// SQLStore keeps values in one table of a SQL database. Change
// notifications are delivered in-process.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	stmts    statements
	notifier *notifier
	logger   utils.Logger
}

// OpenSQLStore connects to dsn, tunes the pool for the dialect and creates
// the table when missing
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn, table string, logger utils.Logger) (*SQLStore, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s connection string is required", dialect)
	}
	if dialect == DialectSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1) // single writer
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	store := NewSQLStore(db, dialect, table, logger)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB, dialect Dialect, table string, logger utils.Logger) *SQLStore {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &SQLStore{
		db:       db,
		dialect:  dialect,
		stmts:    dialect.statements(table),
		notifier: newNotifier(),
		logger:   logger.WithFields(map[string]interface{}{"component": "storage", "dialect": string(dialect)}),
	}
}

// Migrate creates the value table when missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.stmts.create); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Get implements Store
func (s *SQLStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.stmts.get, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "get", key)
	}
	return true, decode(key, []byte(data), out)
}

// Set implements Store
func (s *SQLStore) Set(ctx context.Context, key string, value interface{}, origin string) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.stmts.upsert, key, string(data), time.Now().UTC()); err != nil {
		return storeError(err, "set", key)
	}
	s.notifier.notify(Change{Key: key, Value: data, Origin: origin})
	return nil
}

// Remove implements Store
func (s *SQLStore) Remove(ctx context.Context, key string, origin string) error {
	res, err := s.db.ExecContext(ctx, s.stmts.remove, key)
	if err != nil {
		return storeError(err, "remove", key)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.notifier.notify(Change{Key: key, Origin: origin, Removed: true})
	}
	return nil
}

// OnChange implements Store
func (s *SQLStore) OnChange(key string, fn ChangeFunc, opts ...WatchOption) func() {
	return s.notifier.add(key, fn, opts...)
}

// Close implements Store
func (s *SQLStore) Close() error {
	return s.db.Close()
}
