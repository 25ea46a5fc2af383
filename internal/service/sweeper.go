package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// CacheSweeper periodically removes expired rows from the result cache
type CacheSweeper struct {
	cacheRepo repo.CacheRepo
	interval  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCacheSweeper creates a new cache sweeper
func NewCacheSweeper(cacheRepo repo.CacheRepo, interval time.Duration) *CacheSweeper {
	return &CacheSweeper{
		cacheRepo: cacheRepo,
		interval:  interval,
	}
}

// Start begins the periodic sweep loop
func (s *CacheSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	fmt.Printf("[Sweeper] Started, interval %s\n", s.interval)
}

// Stop halts the sweep loop and waits for it to finish
func (s *CacheSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *CacheSweeper) sweep(ctx context.Context) {
	removed, err := s.cacheRepo.SweepExpired(ctx)
	if err != nil {
		fmt.Printf("[Sweeper] Sweep failed: %v\n", err)
		return
	}
	if removed > 0 {
		fmt.Printf("[Sweeper] Removed %d expired entries\n", removed)
	}
}
