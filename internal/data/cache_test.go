package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

func newTestCache(t *testing.T) repo.CacheRepo {
	t.Helper()
	r, err := NewCacheRepo(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to create cache repo: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestCacheMiss(t *testing.T) {
	r := newTestCache(t)

	entry, err := r.Get(context.Background(), "/search", "nothing", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Errorf("Expected miss, got %+v", entry)
	}
}

func TestCachePutGet(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	buttons := []domain.Button{
		{Label: "Group A", URL: "https://t.me/a"},
		{Label: "下一页", Data: []byte("page_2"), SourceMsgID: 5},
	}
	if err := r.Put(ctx, "/search", "golang", 1, "results here", buttons, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := r.Get(ctx, "/search", "golang", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected hit")
	}
	if entry.Text != "results here" {
		t.Errorf("Expected text preserved, got %q", entry.Text)
	}
	if len(entry.Buttons) != 2 {
		t.Fatalf("Expected 2 buttons, got %d", len(entry.Buttons))
	}
	if entry.Buttons[0].URL != "https://t.me/a" {
		t.Errorf("URL button mangled: %+v", entry.Buttons[0])
	}
	if string(entry.Buttons[1].Data) != "page_2" || entry.Buttons[1].SourceMsgID != 5 {
		t.Errorf("Payload button mangled: %+v", entry.Buttons[1])
	}
	if entry.ExpiresAt.IsZero() {
		t.Error("Expected expiry set")
	}
}

func TestCacheKeyedByCommandKeywordPage(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	_ = r.Put(ctx, "/search", "go", 1, "search p1", nil, 0)
	_ = r.Put(ctx, "/search", "go", 2, "search p2", nil, 0)
	_ = r.Put(ctx, "/text", "go", 1, "text p1", nil, 0)

	entry, _ := r.Get(ctx, "/search", "go", 2)
	if entry == nil || entry.Text != "search p2" {
		t.Errorf("Expected page 2 of /search, got %+v", entry)
	}
	entry, _ = r.Get(ctx, "/text", "go", 1)
	if entry == nil || entry.Text != "text p1" {
		t.Errorf("Expected /text entry, got %+v", entry)
	}
}

func TestCacheAccessCountOnHit(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	_ = r.Put(ctx, "/search", "hot", 1, "x", nil, 0)

	first, _ := r.Get(ctx, "/search", "hot", 1)
	second, _ := r.Get(ctx, "/search", "hot", 1)

	if first.AccessCount != 1 {
		t.Errorf("Expected first hit counted as 1, got %d", first.AccessCount)
	}
	if second.AccessCount != 2 {
		t.Errorf("Expected second hit counted as 2, got %d", second.AccessCount)
	}
	if second.LastAccessed.IsZero() {
		t.Error("Expected last access time set")
	}
}

func TestCacheUpsertPreservesAccessCount(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	_ = r.Put(ctx, "/search", "go", 1, "old", nil, 0)
	_, _ = r.Get(ctx, "/search", "go", 1)
	_, _ = r.Get(ctx, "/search", "go", 1)

	// Re-crawl overwrites content but not popularity
	if err := r.Put(ctx, "/search", "go", 1, "new", nil, 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, _ := r.Get(ctx, "/search", "go", 1)
	if entry.Text != "new" {
		t.Errorf("Expected refreshed text, got %q", entry.Text)
	}
	if entry.AccessCount != 3 {
		t.Errorf("Expected access counter preserved across upsert, got %d", entry.AccessCount)
	}
}

func TestCacheExpiryAndSweep(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	_ = r.Put(ctx, "/search", "short", 1, "x", nil, time.Second)
	_ = r.Put(ctx, "/search", "forever", 1, "y", nil, 0)

	time.Sleep(2100 * time.Millisecond)

	if entry, _ := r.Get(ctx, "/search", "short", 1); entry != nil {
		t.Errorf("Expected expired entry to miss, got %+v", entry)
	}
	if entry, _ := r.Get(ctx, "/search", "forever", 1); entry == nil {
		t.Error("Expected zero-TTL entry to never expire")
	}

	removed, err := r.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 row swept, got %d", removed)
	}
}

func TestCacheStats(t *testing.T) {
	r := newTestCache(t)
	ctx := context.Background()

	_ = r.Put(ctx, "/search", "popular", 1, "x", nil, 0)
	_ = r.Put(ctx, "/search", "quiet", 1, "y", nil, 0)
	_, _ = r.Get(ctx, "/search", "popular", 1)
	_, _ = r.Get(ctx, "/search", "popular", 1)

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Valid != 2 || stats.Expired != 0 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	if len(stats.Top) == 0 || stats.Top[0].Keyword != "popular" {
		t.Errorf("Expected most accessed first, got %+v", stats.Top)
	}
}
