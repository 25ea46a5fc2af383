package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// maxCallbackDataLen is the outbound protocol's callback payload
// ceiling in bytes.
const maxCallbackDataLen = 64

// DefaultCallbackCapacity bounds the translation table. Oldest entries
// are evicted first; clicking an evicted id reads as expired.
const DefaultCallbackCapacity = 4096

// CallbackUsecase translates opaque upstream callback payloads into
// short local identifiers safe for the end-user-facing protocol, and
// reverses the mapping on click.
type CallbackUsecase struct {
	mu      sync.Mutex
	entries map[string]callbackEntry
	order   []string
	counter uint64
	cap     int
}

type callbackEntry struct {
	msgID int
	data  []byte
}

// NewCallbackUsecase creates a new callback usecase.
func NewCallbackUsecase(capacity int) *CallbackUsecase {
	if capacity <= 0 {
		capacity = DefaultCallbackCapacity
	}
	return &CallbackUsecase{
		entries: make(map[string]callbackEntry),
		cap:     capacity,
	}
}

// Translate converts one upstream button for display. URL buttons pass
// through unchanged; payload buttons get a minted local identifier.
func (uc *CallbackUsecase) Translate(b domain.Button) repo.ReplyButton {
	if b.IsURL() {
		return repo.ReplyButton{Label: b.Label, URL: b.URL}
	}
	return repo.ReplyButton{Label: b.Label, Data: uc.mint(b.SourceMsgID, b.Data)}
}

// TranslateRows converts a whole keyboard, preserving row layout.
func (uc *CallbackUsecase) TranslateRows(rows [][]domain.Button) [][]repo.ReplyButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]repo.ReplyButton, 0, len(rows))
	for _, row := range rows {
		outRow := make([]repo.ReplyButton, 0, len(row))
		for _, b := range row {
			outRow = append(outRow, uc.Translate(b))
		}
		if len(outRow) > 0 {
			out = append(out, outRow)
		}
	}
	return out
}

// Resolve returns the upstream message ID and payload behind a local
// identifier. ok is false for unknown or evicted identifiers.
func (uc *CallbackUsecase) Resolve(localID string) (msgID int, data []byte, ok bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	entry, ok := uc.entries[localID]
	if !ok {
		return 0, nil, false
	}
	return entry.msgID, entry.data, true
}

// mint records the payload under a fresh identifier. The id is built
// from a timestamp plus a process-monotonic counter, never from the
// payload content, so truncation cannot collide.
func (uc *CallbackUsecase) mint(msgID int, data []byte) string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.counter++
	id := fmt.Sprintf("cb_%d_%d", time.Now().Unix(), uc.counter)
	if len(id) > maxCallbackDataLen {
		id = id[:maxCallbackDataLen]
	}

	uc.entries[id] = callbackEntry{msgID: msgID, data: data}
	uc.order = append(uc.order, id)

	for len(uc.order) > uc.cap {
		oldest := uc.order[0]
		uc.order = uc.order[1:]
		delete(uc.entries, oldest)
	}
	return id
}

// Len returns the number of live mappings.
func (uc *CallbackUsecase) Len() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.entries)
}
