package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// fallbackSuffixes expand a query into searchable keyword variants when
// no LLM is configured or the call fails. The upstream bot indexes
// mostly Chinese-language groups, so the variants follow its corpus.
var fallbackSuffixes = []string{
	"", "群", "群聊", "交流群", "俱乐部", "社群", "社区", "论坛",
	"频道", "资源", "教程", "学习", "工具", "推荐", "官方", "中文",
}

// maxSuggestions caps the keyword list shown to the user.
const maxSuggestions = 30

// SuggestUsecase produces search keyword candidates for a free-text
// query, via the LLM when available with a deterministic fallback.
// It also keeps a per-user sliding history window for prompt context.
type SuggestUsecase struct {
	suggestRepo repo.SuggestRepo

	mu        sync.Mutex
	histories map[int64]*domain.History
	maxTurns  int
}

// NewSuggestUsecase creates a new suggestion usecase. suggestRepo may
// be nil; only the fallback is used then.
func NewSuggestUsecase(suggestRepo repo.SuggestRepo, maxTurns int) *SuggestUsecase {
	if maxTurns <= 0 {
		maxTurns = 8
	}
	return &SuggestUsecase{
		suggestRepo: suggestRepo,
		histories:   make(map[int64]*domain.History),
		maxTurns:    maxTurns,
	}
}

// Enabled reports whether an LLM backend is configured.
func (uc *SuggestUsecase) Enabled() bool {
	return uc.suggestRepo != nil
}

// Suggest returns keyword candidates for the query. Never fails: LLM
// errors degrade to the suffix fallback.
func (uc *SuggestUsecase) Suggest(ctx context.Context, userID int64, query string) []string {
	uc.remember(userID, "user", query)

	if uc.suggestRepo == nil {
		return uc.fallback(query)
	}

	keywords, err := uc.suggestRepo.Suggest(ctx, query, uc.recent(userID))
	if err != nil || len(keywords) == 0 {
		if err != nil {
			fmt.Printf("[Suggest] LLM failed, using fallback: %v\n", err)
		}
		return uc.fallback(query)
	}
	if len(keywords) > maxSuggestions {
		keywords = keywords[:maxSuggestions]
	}
	return keywords
}

// ClearHistory drops a user's conversation window.
func (uc *SuggestUsecase) ClearHistory(userID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.histories, userID)
}

func (uc *SuggestUsecase) remember(userID int64, role, content string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	h, ok := uc.histories[userID]
	if !ok {
		h = &domain.History{Max: uc.maxTurns}
		uc.histories[userID] = h
	}
	h.Add(role, content)
}

func (uc *SuggestUsecase) recent(userID int64) []domain.HistoryTurn {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if h, ok := uc.histories[userID]; ok {
		return h.Recent(uc.maxTurns)
	}
	return nil
}

// fallback builds keyword variants by suffixing the raw query,
// deduplicated case-insensitively.
func (uc *SuggestUsecase) fallback(query string) []string {
	query = strings.TrimSpace(query)
	seen := make(map[string]struct{})
	var keywords []string
	for _, suffix := range fallbackSuffixes {
		keyword := query + suffix
		lower := strings.ToLower(keyword)
		if keyword == "" {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, keyword)
		if len(keywords) >= maxSuggestions {
			break
		}
	}
	return keywords
}
