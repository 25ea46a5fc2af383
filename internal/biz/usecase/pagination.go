package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// nextPageLabels are the labels the upstream bot puts on its
// page-advance buttons.
var nextPageLabels = []string{"下一页", "Next", "▶"}

// PaginationConfig holds pagination tuning (value object).
type PaginationConfig struct {
	MaxPages   int           // crawl ceiling, first page included
	ClickDelay time.Duration // courtesy delay before each click
	FetchDelay time.Duration // wait after a click before re-reading
	CacheTTL   time.Duration
}

// DefaultPaginationConfig returns the defaults used in production.
func DefaultPaginationConfig() PaginationConfig {
	return PaginationConfig{
		MaxPages:   10,
		ClickDelay: 2 * time.Second,
		FetchDelay: 1500 * time.Millisecond,
		CacheTTL:   30 * 24 * time.Hour,
	}
}

// PaginationUsecase crawls result pages in the background after a
// first page arrives, caching each one. Fire-and-forget enrichment:
// it is decoupled from any user-visible reply.
type PaginationUsecase struct {
	mirrorRepo repo.MirrorRepo
	cacheRepo  repo.CacheRepo
	config     PaginationConfig

	mu     sync.Mutex
	active map[int64]struct{}
	wg     sync.WaitGroup
}

// NewPaginationUsecase creates a new pagination usecase.
func NewPaginationUsecase(mirrorRepo repo.MirrorRepo, cacheRepo repo.CacheRepo, config PaginationConfig) *PaginationUsecase {
	if config.MaxPages <= 0 {
		config.MaxPages = 10
	}
	return &PaginationUsecase{
		mirrorRepo: mirrorRepo,
		cacheRepo:  cacheRepo,
		config:     config,
		active:     make(map[int64]struct{}),
	}
}

// Start launches a background crawl for the user's result set.
// Idempotent per user: a second call while a crawl is running is a
// no-op.
func (uc *PaginationUsecase) Start(userID int64, command, keyword string, firstPage *domain.MirrorMessage) {
	uc.mu.Lock()
	if _, running := uc.active[userID]; running {
		uc.mu.Unlock()
		return
	}
	uc.active[userID] = struct{}{}
	uc.mu.Unlock()

	fmt.Printf("[Pagination] Background crawl started: %s %s\n", command, keyword)

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		defer func() {
			uc.mu.Lock()
			delete(uc.active, userID)
			uc.mu.Unlock()
		}()
		uc.paginate(context.Background(), command, keyword, firstPage)
	}()
}

// Wait blocks until all running crawls finish. Used on shutdown and in
// tests.
func (uc *PaginationUsecase) Wait() {
	uc.wg.Wait()
}

func (uc *PaginationUsecase) paginate(ctx context.Context, command, keyword string, msg *domain.MirrorMessage) {
	uc.savePage(ctx, command, keyword, 1, msg)

	if !HasNextPage(msg) {
		fmt.Printf("[Pagination] Single page result: %s %s\n", command, keyword)
		return
	}

	current := msg
	for page := 2; page <= uc.config.MaxPages; page++ {
		sleep(ctx, uc.config.ClickDelay)

		next, err := uc.clickNext(ctx, current)
		if err != nil {
			fmt.Printf("[Pagination] Stopped at page %d: %v\n", page-1, err)
			return
		}
		if next == nil {
			return
		}

		uc.savePage(ctx, command, keyword, page, next)
		fmt.Printf("[Pagination] Page %d cached: %s %s\n", page, command, keyword)

		if !HasNextPage(next) {
			fmt.Printf("[Pagination] Crawl complete, %d pages: %s %s\n", page, command, keyword)
			return
		}
		current = next
	}
}

// clickNext presses the next-page button and re-reads the edited
// message.
func (uc *PaginationUsecase) clickNext(ctx context.Context, msg *domain.MirrorMessage) (*domain.MirrorMessage, error) {
	btn, ok := findNextButton(msg)
	if !ok {
		return nil, nil
	}

	if err := uc.mirrorRepo.ClickButton(ctx, msg.ID, btn.Data); err != nil {
		return nil, fmt.Errorf("click next page: %w", err)
	}
	sleep(ctx, uc.config.FetchDelay)

	next, err := uc.mirrorRepo.FetchMessage(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch updated page: %w", err)
	}
	return next, nil
}

func (uc *PaginationUsecase) savePage(ctx context.Context, command, keyword string, page int, msg *domain.MirrorMessage) {
	err := uc.cacheRepo.Put(ctx, command, keyword, page, msg.Text, msg.FlatButtons(), uc.config.CacheTTL)
	if err != nil {
		// Caching is best-effort; a failed write just means a later
		// cache miss.
		fmt.Printf("[Pagination] Cache write failed for page %d: %v\n", page, err)
	}
}

// HasNextPage reports whether the message carries a page-advance
// affordance.
func HasNextPage(msg *domain.MirrorMessage) bool {
	_, ok := findNextButton(msg)
	return ok
}

func findNextButton(msg *domain.MirrorMessage) (domain.Button, bool) {
	if msg == nil {
		return domain.Button{}, false
	}
	for _, row := range msg.Rows {
		for _, b := range row {
			if b.IsURL() {
				continue
			}
			for _, label := range nextPageLabels {
				if strings.Contains(b.Label, label) {
					return b, true
				}
			}
		}
	}
	return domain.Button{}, false
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
