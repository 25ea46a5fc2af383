package usecase

import (
	"testing"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

func TestSessionBeginAndGet(t *testing.T) {
	uc := NewSessionUsecase(domain.SessionConfig{IdleTimeout: 30 * time.Minute})

	uc.Begin(1, "golang jobs")

	session := uc.Get(1)
	if session == nil {
		t.Fatal("Expected session after Begin")
	}
	if session.Stage != domain.StageAwaitingChoice {
		t.Errorf("Expected awaiting_choice stage, got %s", session.Stage)
	}
	if session.Query != "golang jobs" || session.Keyword != "golang jobs" {
		t.Errorf("Expected query recorded, got %+v", session)
	}
}

func TestSessionExpires(t *testing.T) {
	uc := NewSessionUsecase(domain.SessionConfig{IdleTimeout: time.Minute})

	session := uc.Begin(1, "q")
	session.UpdatedAt = time.Now().Add(-2 * time.Minute)

	if uc.Get(1) != nil {
		t.Error("Expected expired session to read as absent")
	}
	// And it stays gone
	if uc.Get(1) != nil {
		t.Error("Expected expired session removed")
	}
}

func TestSessionSetKeywordAndStage(t *testing.T) {
	uc := NewSessionUsecase(domain.SessionConfig{IdleTimeout: time.Hour})

	uc.Begin(1, "vpn")
	uc.SetKeyword(1, "vpn 群")
	uc.SetStage(1, domain.StageSearching, true)

	session := uc.Get(1)
	if session == nil {
		t.Fatal("Expected session")
	}
	if session.Keyword != "vpn 群" {
		t.Errorf("Expected picked keyword, got %q", session.Keyword)
	}
	if session.Stage != domain.StageSearching || !session.CanGoBack {
		t.Errorf("Expected searching stage with back-navigation, got %+v", session)
	}
}

func TestSessionBeginReplaces(t *testing.T) {
	uc := NewSessionUsecase(domain.SessionConfig{IdleTimeout: time.Hour})

	uc.Begin(1, "first")
	uc.SetStage(1, domain.StageViewing, true)
	uc.Begin(1, "second")

	session := uc.Get(1)
	if session.Query != "second" || session.Stage != domain.StageAwaitingChoice {
		t.Errorf("Expected new session to replace the old one, got %+v", session)
	}
}

func TestSessionClear(t *testing.T) {
	uc := NewSessionUsecase(domain.SessionConfig{})
	uc.Begin(1, "q")
	uc.Clear(1)
	if uc.Get(1) != nil {
		t.Error("Expected cleared session gone")
	}
}
