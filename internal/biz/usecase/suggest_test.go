package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// mockSuggestRepo returns canned keywords or an error
type mockSuggestRepo struct {
	keywords    []string
	err         error
	lastHistory []domain.HistoryTurn
}

func (m *mockSuggestRepo) Suggest(ctx context.Context, query string, history []domain.HistoryTurn) ([]string, error) {
	m.lastHistory = history
	return m.keywords, m.err
}

func TestSuggestFallbackWithoutBackend(t *testing.T) {
	uc := NewSuggestUsecase(nil, 0)

	if uc.Enabled() {
		t.Error("Expected suggestions disabled without a backend")
	}

	keywords := uc.Suggest(context.Background(), 1, "python")
	if len(keywords) == 0 {
		t.Fatal("Expected fallback keywords")
	}
	if keywords[0] != "python" {
		t.Errorf("Expected raw query first, got %q", keywords[0])
	}

	seen := make(map[string]bool)
	for _, kw := range keywords {
		if seen[kw] {
			t.Errorf("Duplicate keyword %q", kw)
		}
		seen[kw] = true
	}
	if !seen["python群"] {
		t.Error("Expected suffixed variants in fallback")
	}
}

func TestSuggestBackendUsed(t *testing.T) {
	mock := &mockSuggestRepo{keywords: []string{"golang群", "go语言交流"}}
	uc := NewSuggestUsecase(mock, 0)

	keywords := uc.Suggest(context.Background(), 1, "golang")
	if len(keywords) != 2 || keywords[0] != "golang群" {
		t.Errorf("Expected backend keywords, got %v", keywords)
	}
}

func TestSuggestDegradesOnBackendError(t *testing.T) {
	mock := &mockSuggestRepo{err: errors.New("rate limited")}
	uc := NewSuggestUsecase(mock, 0)

	keywords := uc.Suggest(context.Background(), 1, "news")
	if len(keywords) == 0 {
		t.Fatal("Expected fallback keywords on backend error")
	}
	if keywords[0] != "news" {
		t.Errorf("Expected raw query first, got %q", keywords[0])
	}
}

func TestSuggestHistoryWindow(t *testing.T) {
	mock := &mockSuggestRepo{keywords: []string{"k"}}
	uc := NewSuggestUsecase(mock, 2)

	uc.Suggest(context.Background(), 1, "one")
	uc.Suggest(context.Background(), 1, "two")
	uc.Suggest(context.Background(), 1, "three")

	if len(mock.lastHistory) != 2 {
		t.Fatalf("Expected history window of 2, got %d", len(mock.lastHistory))
	}
	if mock.lastHistory[1].Content != "three" {
		t.Errorf("Expected latest query in history, got %q", mock.lastHistory[1].Content)
	}

	uc.ClearHistory(1)
	uc.Suggest(context.Background(), 1, "four")
	if len(mock.lastHistory) != 1 {
		t.Errorf("Expected fresh history after clear, got %d turns", len(mock.lastHistory))
	}
}

func TestSuggestCapsKeywordCount(t *testing.T) {
	many := make([]string, 50)
	for i := range many {
		many[i] = string(rune('a' + i%26))
	}
	mock := &mockSuggestRepo{keywords: many}
	uc := NewSuggestUsecase(mock, 0)

	keywords := uc.Suggest(context.Background(), 1, "q")
	if len(keywords) != maxSuggestions {
		t.Errorf("Expected list capped at %d, got %d", maxSuggestions, len(keywords))
	}
}
