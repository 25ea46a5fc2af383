package repo

import (
	"context"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// CacheRepo is the result cache repository interface.
// Responsible for persisting result pages (SQLite).
type CacheRepo interface {
	// Get returns the unexpired entry for the key, or nil on miss.
	// A hit increments the entry's access counter.
	Get(ctx context.Context, command, keyword string, page int) (*domain.CacheEntry, error)

	// Put upserts an entry. An existing row keeps its access counter;
	// text, buttons and expiry are overwritten.
	Put(ctx context.Context, command, keyword string, page int, text string, buttons []domain.Button, ttl time.Duration) error

	// SweepExpired deletes rows past their expiry.
	SweepExpired(ctx context.Context) (int64, error)

	// Stats returns table totals and the most accessed keys.
	Stats(ctx context.Context) (*domain.CacheStats, error)

	Close() error
}
