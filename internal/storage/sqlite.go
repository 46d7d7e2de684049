package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

// DefaultHistory is how many previous snapshots the sqlite backend keeps.
const DefaultHistory = 20

// SQLite keeps the current snapshot in a single-row table and the previous
// ones in snapshot_history, trimmed to a fixed depth.
type SQLite struct {
	db      *sql.DB
	history int
}

func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, history: DefaultHistory}, nil
}

func (r *SQLite) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLite) Load(ctx context.Context) (*store.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return Decode([]byte(payload))
}

// Save archives the previous snapshot and writes the new one in a single
// transaction.
func (r *SQLite) Save(ctx context.Context, snap store.Snapshot) error {
	b, err := Encode(snap)
	if err != nil {
		return err
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_history (version, saved_at, payload)
		SELECT version, saved_at, payload FROM snapshots WHERE id = 1`); err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, version, saved_at, payload) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at, payload = excluded.payload`,
		store.SnapshotVersion, savedAt.Format(time.RFC3339Nano), string(b)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshot_history WHERE id NOT IN (
			SELECT id FROM snapshot_history ORDER BY id DESC LIMIT ?)`, r.history); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// HistoryLen reports how many archived snapshots are kept.
func (r *SQLite) HistoryLen(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}
