package data

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atai-labs/search-mirror/internal/biz/repo"
	"github.com/atai-labs/search-mirror/internal/infra/mirror"
	"github.com/atai-labs/search-mirror/internal/infra/openai"
)

// Repositories contains all repositories
type Repositories struct {
	Cache     repo.CacheRepo
	Mirror    repo.MirrorRepo
	Messenger repo.MessengerRepo
	Suggest   repo.SuggestRepo
}

// NewRepositories creates all repositories
func NewRepositories(
	bot *tgbotapi.BotAPI,
	mirrorClient *mirror.Client,
	suggestClient *openai.Client,
	cacheDBPath string,
) (*Repositories, error) {
	cacheRepo, err := NewCacheRepo(cacheDBPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Cache:     cacheRepo,
		Mirror:    mirrorClient,
		Messenger: NewMessengerRepo(bot),
	}
	// Suggestion backend is optional; the usecase falls back to
	// deterministic keyword variants without it.
	if suggestClient != nil {
		repos.Suggest = NewSuggestRepo(suggestClient)
	}
	return repos, nil
}
