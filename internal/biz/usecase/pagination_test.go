package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// mockMirrorRepo serves a fixed sequence of pages
type mockMirrorRepo struct {
	mu       sync.Mutex
	pages    []*domain.MirrorMessage
	pos      int
	clicks   int
	clickErr error
	events   chan repo.MirrorEvent
}

func newMockMirror(pages ...*domain.MirrorMessage) *mockMirrorRepo {
	return &mockMirrorRepo{pages: pages, events: make(chan repo.MirrorEvent)}
}

func (m *mockMirrorRepo) Start(ctx context.Context) error { return nil }
func (m *mockMirrorRepo) Stop()                           {}
func (m *mockMirrorRepo) SendCommand(ctx context.Context, text string) error {
	return nil
}

func (m *mockMirrorRepo) ClickButton(ctx context.Context, msgID int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks++
	if m.clickErr != nil {
		return m.clickErr
	}
	if m.pos < len(m.pages)-1 {
		m.pos++
	}
	return nil
}

func (m *mockMirrorRepo) FetchMessage(ctx context.Context, msgID int) (*domain.MirrorMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.pages) {
		return nil, errors.New("no such page")
	}
	return m.pages[m.pos], nil
}

func (m *mockMirrorRepo) Events() <-chan repo.MirrorEvent { return m.events }

func (m *mockMirrorRepo) clickCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clicks
}

// mockCacheRepo records puts in memory
type mockCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.CacheEntry
	putErr  error
}

func newMockCache() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string]*domain.CacheEntry)}
}

func cacheKey(command, keyword string, page int) string {
	return fmt.Sprintf("%s|%s|%d", command, keyword, page)
}

func (m *mockCacheRepo) Get(ctx context.Context, command, keyword string, page int) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[cacheKey(command, keyword, page)], nil
}

func (m *mockCacheRepo) Put(ctx context.Context, command, keyword string, page int, text string, buttons []domain.Button, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[cacheKey(command, keyword, page)] = &domain.CacheEntry{
		Command: command,
		Keyword: keyword,
		Page:    page,
		Text:    text,
		Buttons: buttons,
	}
	return nil
}

func (m *mockCacheRepo) SweepExpired(ctx context.Context) (int64, error) { return 0, nil }
func (m *mockCacheRepo) Stats(ctx context.Context) (*domain.CacheStats, error) {
	return &domain.CacheStats{}, nil
}
func (m *mockCacheRepo) Close() error { return nil }

func (m *mockCacheRepo) pageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func nextButton() domain.Button {
	return domain.Button{Label: "下一页 ▶", Data: []byte("next"), SourceMsgID: 1}
}

func pageWithNext(text string) *domain.MirrorMessage {
	return &domain.MirrorMessage{ID: 1, Text: text, Rows: [][]domain.Button{{nextButton()}}}
}

func lastPage(text string) *domain.MirrorMessage {
	return &domain.MirrorMessage{ID: 1, Text: text}
}

func zeroDelayConfig(maxPages int) PaginationConfig {
	return PaginationConfig{MaxPages: maxPages, CacheTTL: time.Hour}
}

func TestPaginationCrawlsUntilLastPage(t *testing.T) {
	// Pages 2 and 3 exist; page 3 has no next-page affordance.
	mirror := newMockMirror(pageWithNext("page 1"), pageWithNext("page 2"), lastPage("page 3"))
	cache := newMockCache()
	uc := NewPaginationUsecase(mirror, cache, zeroDelayConfig(10))

	uc.Start(1, "/search", "golang", pageWithNext("page 1"))
	uc.Wait()

	if got := cache.pageCount(); got != 3 {
		t.Fatalf("Expected 3 cached pages, got %d", got)
	}
	entry, _ := cache.Get(context.Background(), "/search", "golang", 3)
	if entry == nil || entry.Text != "page 3" {
		t.Errorf("Expected page 3 cached, got %+v", entry)
	}
}

func TestPaginationRespectsCeiling(t *testing.T) {
	// Every page advertises a next page; the crawl must stop at the cap.
	pages := make([]*domain.MirrorMessage, 20)
	for i := range pages {
		pages[i] = pageWithNext(fmt.Sprintf("page %d", i+1))
	}
	mirror := newMockMirror(pages...)
	cache := newMockCache()
	uc := NewPaginationUsecase(mirror, cache, zeroDelayConfig(5))

	uc.Start(1, "/search", "news", pages[0])
	uc.Wait()

	if got := cache.pageCount(); got != 5 {
		t.Errorf("Expected crawl capped at 5 pages, got %d", got)
	}
}

func TestPaginationSinglePage(t *testing.T) {
	mirror := newMockMirror(lastPage("only page"))
	cache := newMockCache()
	uc := NewPaginationUsecase(mirror, cache, zeroDelayConfig(10))

	uc.Start(1, "/search", "rare", lastPage("only page"))
	uc.Wait()

	if got := cache.pageCount(); got != 1 {
		t.Errorf("Expected only the first page cached, got %d", got)
	}
	if mirror.clickCount() != 0 {
		t.Errorf("Expected no clicks for a single page, got %d", mirror.clickCount())
	}
}

func TestPaginationStopsOnClickError(t *testing.T) {
	mirror := newMockMirror(pageWithNext("page 1"))
	mirror.clickErr = errors.New("flood wait")
	cache := newMockCache()
	uc := NewPaginationUsecase(mirror, cache, zeroDelayConfig(10))

	uc.Start(1, "/search", "err", pageWithNext("page 1"))
	uc.Wait()

	if got := cache.pageCount(); got != 1 {
		t.Errorf("Expected crawl to stop after the first page, got %d pages", got)
	}
}

func TestPaginationSingleFlightPerUser(t *testing.T) {
	// A slow crawl must not be doubled by a second Start.
	mirror := newMockMirror(pageWithNext("page 1"), pageWithNext("page 2"), lastPage("page 3"))
	cache := newMockCache()
	cfg := zeroDelayConfig(10)
	cfg.ClickDelay = 50 * time.Millisecond
	uc := NewPaginationUsecase(mirror, cache, cfg)

	uc.Start(1, "/search", "dup", pageWithNext("page 1"))
	uc.Start(1, "/search", "dup", pageWithNext("page 1"))
	uc.Wait()

	if got := cache.pageCount(); got != 3 {
		t.Errorf("Expected one crawl's worth of pages, got %d", got)
	}
}

func TestHasNextPage(t *testing.T) {
	if !HasNextPage(pageWithNext("x")) {
		t.Error("Expected next-page affordance detected")
	}
	if HasNextPage(lastPage("x")) {
		t.Error("Expected no affordance on a last page")
	}
	if HasNextPage(nil) {
		t.Error("Expected nil message to have no affordance")
	}

	// URL buttons never count, whatever their label says
	urlOnly := &domain.MirrorMessage{Rows: [][]domain.Button{{
		{Label: "Next", URL: "https://t.me/x"},
	}}}
	if HasNextPage(urlOnly) {
		t.Error("Expected URL button to be ignored")
	}

	english := &domain.MirrorMessage{Rows: [][]domain.Button{{
		{Label: "Next »", Data: []byte("n")},
	}}}
	if !HasNextPage(english) {
		t.Error("Expected English next label detected")
	}
}
