package repo

import (
	"context"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// MirrorRepo is the mirror session interface.
// A secondary user-account identity that talks to the upstream search
// bot as if a human were typing commands to it. Replies arrive only as
// events; there is no request/response pairing at the protocol level.
type MirrorRepo interface {
	// Start connects the session and resolves the upstream target.
	// Must complete before the front-end starts accepting traffic.
	Start(ctx context.Context) error

	// Stop disconnects gracefully.
	Stop()

	// SendCommand sends a message to the upstream target. On a flood
	// wait signal it sleeps the indicated duration and retries once.
	SendCommand(ctx context.Context, text string) error

	// ClickButton replays an opaque callback payload against an
	// upstream message, simulating a human button press. The result,
	// if any, arrives later as an edit event.
	ClickButton(ctx context.Context, msgID int, data []byte) error

	// FetchMessage re-reads an upstream message, polling briefly until
	// it has content (the upstream edits in place after a click).
	FetchMessage(ctx context.Context, msgID int) (*domain.MirrorMessage, error)

	// Events is the channel of upstream activity.
	Events() <-chan MirrorEvent
}

// MirrorEventType represents the mirror event type.
type MirrorEventType string

const (
	MirrorEventNewMessage MirrorEventType = "new_message"
	MirrorEventEdit       MirrorEventType = "edit"
)

// MirrorEvent is one observed upstream message or edit.
type MirrorEvent struct {
	Type    MirrorEventType
	Message *domain.MirrorMessage
}
