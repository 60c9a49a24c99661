// Package sqlitestore keeps the manifest in a SQLite database so both
// documents are replaced in a single transaction.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"xdao.co/facetreg/manifest"
)

const (
	keyAddresses = "addresses"
	keyInterface = "interface"
)

const schema = `
CREATE TABLE IF NOT EXISTS manifest_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS manifest_lock (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	holder      TEXT NOT NULL,
	acquired_at INTEGER NOT NULL
);`

// DefaultLockPoll is how often Lock retries while another writer holds the lock.
const DefaultLockPoll = 50 * time.Millisecond

// Store is a SQLite-backed manifest.Store.
type Store struct {
	sqlDB  *sql.DB
	holder string

	// LockPoll overrides DefaultLockPoll when non-zero.
	LockPoll time.Duration
}

var (
	_ manifest.Store        = (*Store)(nil)
	_ manifest.AtomicWriter = (*Store)(nil)
)

// Open opens (and initialises) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitestore: path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, err
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	host, _ := os.Hostname()
	return &Store{sqlDB: sqlDB, holder: fmt.Sprintf("%s:%d:%d", host, os.Getpid(), time.Now().UnixNano())}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ReadAddresses(ctx context.Context) ([]byte, error) {
	return s.get(ctx, keyAddresses)
}

func (s *Store) ReadInterface(ctx context.Context) ([]byte, error) {
	return s.get(ctx, keyInterface)
}

func (s *Store) WriteAddresses(ctx context.Context, b []byte) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error { return put(ctx, tx, keyAddresses, b) })
}

func (s *Store) WriteInterface(ctx context.Context, b []byte) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error { return put(ctx, tx, keyInterface, b) })
}

// WriteAll replaces both documents in one transaction.
func (s *Store) WriteAll(ctx context.Context, addresses, iface []byte) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := put(ctx, tx, keyAddresses, addresses); err != nil {
			return err
		}
		return put(ctx, tx, keyInterface, iface)
	})
}

// Lock claims the single lock row, retrying until ctx is done.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	poll := s.LockPoll
	if poll <= 0 {
		poll = DefaultLockPoll
	}
	for {
		res, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO manifest_lock (id, holder, acquired_at) VALUES (1, ?, ?) ON CONFLICT(id) DO NOTHING`,
			s.holder, time.Now().UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: lock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return func() {
				_, _ = s.sqlDB.ExecContext(context.Background(), `DELETE FROM manifest_lock WHERE id = 1 AND holder = ?`, s.holder)
			}, nil
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("sqlitestore: lock held by %s: %w", s.lockHolder(), ctx.Err())
		case <-timer.C:
		}
	}
}

// WithTx runs fn in a transaction, committing on success.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var b []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM manifest_kv WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: read %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) lockHolder() string {
	var holder string
	err := s.sqlDB.QueryRow(`SELECT holder FROM manifest_lock WHERE id = 1`).Scan(&holder)
	if err != nil {
		return "another writer"
	}
	return holder
}

func put(ctx context.Context, tx *sql.Tx, key string, b []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO manifest_kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, b, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlitestore: write %s: %w", key, err)
	}
	return nil
}
