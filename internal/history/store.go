// Package history persists confirmed picks and serves them back as a
// "recent selections" producer. It stores outcomes only, never the item
// corpus itself.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runger/selecta/internal/item"
)

// Store is a SQLite-backed record of confirmed selections.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the recents database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrency better with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS selections (
			identity       TEXT PRIMARY KEY,
			display        TEXT NOT NULL,
			match_text     TEXT NOT NULL DEFAULT '',
			kind           TEXT NOT NULL DEFAULT '',
			picks          INTEGER NOT NULL DEFAULT 0,
			last_picked_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_selections_rank
			ON selections (picks DESC, last_picked_ms DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Record upserts the given picked items, bumping their pick count and
// recency. Items without an identity are skipped.
func (s *Store) Record(ctx context.Context, items []item.Item) error {
	now := time.Now().UnixMilli()
	for _, it := range items {
		if it.Identity == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO selections (identity, display, match_text, kind, picks, last_picked_ms)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT(identity) DO UPDATE SET
				display = excluded.display,
				match_text = excluded.match_text,
				kind = excluded.kind,
				picks = picks + 1,
				last_picked_ms = excluded.last_picked_ms
		`, it.Identity, it.Display, it.MatchText, it.Kind, now)
		if err != nil {
			return fmt.Errorf("failed to record selection: %w", err)
		}
	}
	return nil
}

// Recent returns previously picked items ranked by pick count then
// recency, coarsely narrowed by a substring match on display. Fine
// ranking is the filter pipeline's job.
func (s *Store) Recent(ctx context.Context, query string, limit int) ([]item.Item, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, display, match_text, kind
		FROM selections
		WHERE ? = '' OR display LIKE '%' || ? || '%'
		ORDER BY picks DESC, last_picked_ms DESC
		LIMIT ?
	`, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var items []item.Item
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.Identity, &it.Display, &it.MatchText, &it.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
