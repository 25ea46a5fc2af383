package biz

import (
	"github.com/atai-labs/search-mirror/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Callback   *usecase.CallbackUsecase
	Tracker    *usecase.TrackerUsecase
	Pagination *usecase.PaginationUsecase
	Session    *usecase.SessionUsecase
	Suggest    *usecase.SuggestUsecase
}
