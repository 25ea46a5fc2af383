package usecase

import (
	"sync"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// SessionUsecase tracks per-user front-end sessions in memory.
// Sessions age out after the configured idle timeout; an expired
// session reads as absent on next contact.
type SessionUsecase struct {
	mu       sync.Mutex
	sessions map[int64]*domain.UserSession
	config   domain.SessionConfig
}

// NewSessionUsecase creates a new session usecase.
func NewSessionUsecase(config domain.SessionConfig) *SessionUsecase {
	return &SessionUsecase{
		sessions: make(map[int64]*domain.UserSession),
		config:   config,
	}
}

// Begin starts a fresh session for the user's query, replacing any
// prior one.
func (uc *SessionUsecase) Begin(userID int64, query string) *domain.UserSession {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := time.Now()
	session := &domain.UserSession{
		UserID:    userID,
		Stage:     domain.StageAwaitingChoice,
		Query:     query,
		Keyword:   query,
		CreatedAt: now,
		UpdatedAt: now,
	}
	uc.sessions[userID] = session
	return session
}

// Get returns the user's session, or nil when absent or expired.
func (uc *SessionUsecase) Get(userID int64) *domain.UserSession {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	session, ok := uc.sessions[userID]
	if !ok {
		return nil
	}
	if !session.IsFresh(uc.config, time.Now()) {
		delete(uc.sessions, userID)
		return nil
	}
	return session
}

// SetKeyword records the keyword the user picked for their query.
func (uc *SessionUsecase) SetKeyword(userID int64, keyword string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if session, ok := uc.sessions[userID]; ok {
		session.Keyword = keyword
		session.Touch()
	}
}

// SetStage moves the user's session to a new stage.
func (uc *SessionUsecase) SetStage(userID int64, stage domain.Stage, canGoBack bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if session, ok := uc.sessions[userID]; ok {
		session.Stage = stage
		session.CanGoBack = canGoBack
		session.Touch()
	}
}

// Clear removes the user's session.
func (uc *SessionUsecase) Clear(userID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.sessions, userID)
}
