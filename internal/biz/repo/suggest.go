package repo

import (
	"context"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// SuggestRepo is the keyword suggestion interface.
// query: the user's free-text request
// history: recent exchanges for context (may be empty)
type SuggestRepo interface {
	Suggest(ctx context.Context, query string, history []domain.HistoryTurn) ([]string, error)
}
