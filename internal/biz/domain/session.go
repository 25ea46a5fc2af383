package domain

import "time"

// Stage is the front-end conversation stage of one user.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageAwaitingChoice Stage = "awaiting_choice"
	StageSearching      Stage = "searching"
	StageViewing        Stage = "viewing"
)

// UserSession tracks one end user's position in the search flow.
type UserSession struct {
	UserID    int64
	Stage     Stage
	Query     string
	Keyword   string
	CanGoBack bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionConfig holds session tuning (value object).
type SessionConfig struct {
	IdleTimeout time.Duration
}

// IsFresh checks whether the session is still valid.
func (s *UserSession) IsFresh(cfg SessionConfig, now time.Time) bool {
	if cfg.IdleTimeout <= 0 {
		return true
	}
	return now.Sub(s.UpdatedAt) <= cfg.IdleTimeout
}

// Touch updates active time.
func (s *UserSession) Touch() {
	s.UpdatedAt = time.Now()
}
