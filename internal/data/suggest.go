package data

import (
	"context"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
	"github.com/atai-labs/search-mirror/internal/infra/openai"
)

// suggestRepo implements the keyword suggestion repository over the
// OpenAI-compatible client
type suggestRepo struct {
	client *openai.Client
}

// NewSuggestRepo creates a new suggestion repository
func NewSuggestRepo(client *openai.Client) repo.SuggestRepo {
	return &suggestRepo{client: client}
}

// Suggest asks the model for keyword candidates
func (r *suggestRepo) Suggest(ctx context.Context, query string, history []domain.HistoryTurn) ([]string, error) {
	var lines []string
	for _, turn := range history {
		lines = append(lines, turn.Role+": "+turn.Content)
	}
	return r.client.SuggestKeywords(ctx, query, lines)
}
