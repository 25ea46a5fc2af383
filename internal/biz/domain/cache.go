package domain

import "time"

// CacheEntry is one cached result page, keyed by (command, keyword, page).
type CacheEntry struct {
	Command string
	Keyword string
	Page    int

	Text    string
	Buttons []Button

	CreatedAt    time.Time
	ExpiresAt    time.Time
	AccessCount  int
	LastAccessed time.Time
}

// Expired reports whether the entry's TTL has passed. A zero ExpiresAt
// means the entry never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// CacheStats summarizes the cache table for the operator tooling.
type CacheStats struct {
	Total   int
	Valid   int
	Expired int
	Top     []CacheTopEntry
}

// CacheTopEntry is one row of the most-accessed ranking.
type CacheTopEntry struct {
	Command     string
	Keyword     string
	AccessCount int
}
