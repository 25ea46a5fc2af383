package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// cacheRepo implements the result cache repository
type cacheRepo struct {
	db *sql.DB
}

// NewCacheRepo creates a new cache repository
func NewCacheRepo(dbPath string) (repo.CacheRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS search_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command TEXT NOT NULL,
			keyword TEXT NOT NULL,
			page INTEGER NOT NULL,
			result_text TEXT,
			buttons_json TEXT,
			created_at INTEGER NOT NULL,
			expires_at INTEGER,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER,
			UNIQUE(command, keyword, page)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Key index
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_search ON search_cache(command, keyword, page)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	// Expiry index for sweep efficiency
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires ON search_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create expiry index: %w", err)
	}

	return &cacheRepo{db: db}, nil
}

// Get returns the unexpired entry for a key and bumps its access stats
func (r *cacheRepo) Get(ctx context.Context, command, keyword string, page int) (*domain.CacheEntry, error) {
	now := time.Now()
	row := r.db.QueryRowContext(ctx, `
		SELECT id, result_text, buttons_json, created_at, expires_at, access_count, last_accessed
		FROM search_cache
		WHERE command = ? AND keyword = ? AND page = ?
		AND (expires_at IS NULL OR expires_at > ?)
	`, command, keyword, page, now.Unix())

	var (
		id           int64
		buttonsJSON  sql.NullString
		createdAt    int64
		expiresAt    sql.NullInt64
		lastAccessed sql.NullInt64
	)
	entry := domain.CacheEntry{Command: command, Keyword: keyword, Page: page}
	err := row.Scan(&id, &entry.Text, &buttonsJSON, &createdAt, &expiresAt, &entry.AccessCount, &lastAccessed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAt, 0)
	if expiresAt.Valid {
		entry.ExpiresAt = time.Unix(expiresAt.Int64, 0)
	}
	if lastAccessed.Valid {
		entry.LastAccessed = time.Unix(lastAccessed.Int64, 0)
	}
	if buttonsJSON.Valid {
		buttons, err := domain.DecodeButtons([]byte(buttonsJSON.String))
		if err != nil {
			return nil, fmt.Errorf("failed to decode cached buttons: %w", err)
		}
		entry.Buttons = buttons
	}

	// Access tracking is an observable side effect of a hit
	_, err = r.db.ExecContext(ctx, `
		UPDATE search_cache
		SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?
	`, now.Unix(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update access stats: %w", err)
	}
	entry.AccessCount++
	entry.LastAccessed = now

	return &entry, nil
}

// Put upserts an entry, preserving the access counter of an existing row
func (r *cacheRepo) Put(ctx context.Context, command, keyword string, page int, text string, buttons []domain.Button, ttl time.Duration) error {
	buttonsJSON, err := domain.EncodeButtons(buttons)
	if err != nil {
		return fmt.Errorf("failed to encode buttons: %w", err)
	}

	now := time.Now()
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	var buttonsValue interface{}
	if buttonsJSON != nil {
		buttonsValue = string(buttonsJSON)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO search_cache
		(command, keyword, page, result_text, buttons_json, created_at, expires_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT access_count FROM search_cache WHERE command = ? AND keyword = ? AND page = ?), 0))
	`, command, keyword, page, text, buttonsValue, now.Unix(), expiresAt, now.Unix(),
		command, keyword, page)
	if err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// SweepExpired deletes rows past their expiry
func (r *cacheRepo) SweepExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM search_cache
		WHERE expires_at IS NOT NULL AND expires_at < ?
	`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired cache: %w", err)
	}
	return result.RowsAffected()
}

// Stats returns table totals and the most accessed keys
func (r *cacheRepo) Stats(ctx context.Context) (*domain.CacheStats, error) {
	stats := &domain.CacheStats{}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_cache`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count cache: %w", err)
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM search_cache
		WHERE expires_at IS NULL OR expires_at > ?
	`, time.Now().Unix()).Scan(&stats.Valid)
	if err != nil {
		return nil, fmt.Errorf("failed to count valid cache: %w", err)
	}
	stats.Expired = stats.Total - stats.Valid

	rows, err := r.db.QueryContext(ctx, `
		SELECT command, keyword, access_count
		FROM search_cache
		ORDER BY access_count DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top accessed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var top domain.CacheTopEntry
		if err := rows.Scan(&top.Command, &top.Keyword, &top.AccessCount); err != nil {
			return nil, fmt.Errorf("failed to scan top accessed: %w", err)
		}
		stats.Top = append(stats.Top, top)
	}
	return stats, rows.Err()
}

// Close closes the database connection
func (r *cacheRepo) Close() error {
	return r.db.Close()
}
