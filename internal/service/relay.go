package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
	"github.com/atai-labs/search-mirror/internal/biz/usecase"
)

const (
	// maxReplyLen is the outbound message text ceiling.
	maxReplyLen = 4000

	// CallbackBack is the control token for the back-to-choices button.
	CallbackBack = "back_to_keywords"

	backButtonLabel = "🔙 Back to search options"

	// rebuiltRowWidth chunks flat cached buttons back into rows.
	rebuiltRowWidth = 4
)

// RelayService coordinates the mirror session with the bot front-end:
// it dispatches searches upstream, routes unlabelled replies back to
// their owners, serves and fills the result cache, and drives
// pagination.
type RelayService struct {
	trackerUC    *usecase.TrackerUsecase
	callbackUC   *usecase.CallbackUsecase
	paginationUC *usecase.PaginationUsecase

	cacheRepo  repo.CacheRepo
	mirrorRepo repo.MirrorRepo
	messenger  repo.MessengerRepo

	cacheTTL time.Duration

	wg sync.WaitGroup
}

// NewRelayService creates a new relay service
func NewRelayService(
	trackerUC *usecase.TrackerUsecase,
	callbackUC *usecase.CallbackUsecase,
	paginationUC *usecase.PaginationUsecase,
	cacheRepo repo.CacheRepo,
	mirrorRepo repo.MirrorRepo,
	messenger repo.MessengerRepo,
	cacheTTL time.Duration,
) *RelayService {
	return &RelayService{
		trackerUC:    trackerUC,
		callbackUC:   callbackUC,
		paginationUC: paginationUC,
		cacheRepo:    cacheRepo,
		mirrorRepo:   mirrorRepo,
		messenger:    messenger,
		cacheTTL:     cacheTTL,
	}
}

// SearchRequest describes one user-initiated search
type SearchRequest struct {
	UserID           int64
	ChatID           int64
	PlaceholderMsgID int
	Command          string // e.g. "/search"
	Keyword          string
	CanGoBack        bool
}

// Dispatch serves a search from cache when possible, otherwise forwards
// it upstream through the mirror session. Returns whether the cache
// answered.
func (s *RelayService) Dispatch(ctx context.Context, req *SearchRequest) (bool, error) {
	entry, err := s.cacheRepo.Get(ctx, req.Command, req.Keyword, 1)
	if err != nil {
		// Cache trouble reads as a miss, never as a user-visible error.
		fmt.Printf("[Relay] Cache read failed: %v\n", err)
		entry = nil
	}

	if entry != nil {
		fmt.Printf("[Relay] Cache hit: %s %s page 1\n", req.Command, req.Keyword)
		s.serveCached(ctx, req, entry, 1)
		return true, nil
	}

	s.trackerUC.Register(&domain.PendingRequest{
		UserID:           req.UserID,
		ChatID:           req.ChatID,
		PlaceholderMsgID: req.PlaceholderMsgID,
		Command:          req.Command,
		Keyword:          req.Keyword,
		CanGoBack:        req.CanGoBack,
	})

	if err := s.mirrorRepo.SendCommand(ctx, strings.TrimSpace(req.Command+" "+req.Keyword)); err != nil {
		s.trackerUC.Drop(req.UserID)
		return false, fmt.Errorf("forward search upstream: %w", err)
	}
	fmt.Printf("[Relay] Forwarded upstream: %s %s\n", req.Command, req.Keyword)
	return false, nil
}

// serveCached renders a cached page into the user's placeholder message
func (s *RelayService) serveCached(ctx context.Context, req *SearchRequest, entry *domain.CacheEntry, page int) {
	rows := s.rebuildKeyboard(entry.Buttons, req.CanGoBack)
	err := s.messenger.EditKeyboard(ctx, req.ChatID, req.PlaceholderMsgID, clip(entry.Text), rows)
	if err != nil {
		fmt.Printf("[Relay] Failed to render cached page: %v\n", err)
		return
	}

	// Keep a consumed tracker entry around as viewing context for
	// pagination clicks.
	s.trackerUC.Register(&domain.PendingRequest{
		UserID:           req.UserID,
		ChatID:           req.ChatID,
		PlaceholderMsgID: req.PlaceholderMsgID,
		ResultMsgID:      req.PlaceholderMsgID,
		Command:          req.Command,
		Keyword:          req.Keyword,
		CanGoBack:        req.CanGoBack,
		SourceMsgID:      sourceMsgID(entry.Buttons),
		LastPage:         page,
	})
}

// StartEventLoop consumes mirror session events
func (s *RelayService) StartEventLoop() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for event := range s.mirrorRepo.Events() {
			s.handleUpstream(event)
		}
	}()
}

// Wait blocks until the event loop drains. Used on shutdown.
func (s *RelayService) Wait() {
	s.wg.Wait()
}

// handleUpstream routes one upstream message or edit back to the end
// user who most recently asked.
func (s *RelayService) handleUpstream(event repo.MirrorEvent) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Relay] Recovered in upstream handler: %v\n", r)
		}
	}()

	msg := event.Message
	if msg == nil {
		return
	}

	owner := s.trackerUC.ResolveLatest(time.Now())
	if owner == nil {
		// Late or unsolicited upstream traffic is dropped, not shown.
		fmt.Printf("[Relay] Unowned upstream %s for msg %d, dropping\n", event.Type, msg.ID)
		return
	}

	ctx := context.Background()
	rows := s.callbackUC.TranslateRows(msg.Rows)
	if owner.CanGoBack {
		rows = appendBackRow(rows)
	}

	text := clip(msg.Text)
	delivered := owner.ResultMsgID
	if delivered == 0 {
		delivered = owner.PlaceholderMsgID
	}

	if err := s.messenger.EditKeyboard(ctx, owner.ChatID, delivered, text, rows); err != nil {
		// Placeholder may be gone; fall back to a fresh message.
		fmt.Printf("[Relay] Edit failed, sending new message: %v\n", err)
		sent, sendErr := s.messenger.SendKeyboard(ctx, owner.ChatID, text, rows)
		if sendErr != nil {
			fmt.Printf("[Relay] Failed to deliver result: %v\n", sendErr)
			return
		}
		delivered = sent
	}

	// Edits of an already-delivered result only refresh the display.
	// The upstream bot edits the same message while the crawler pages
	// through it; re-caching those edits would clobber page 1.
	if event.Type != repo.MirrorEventNewMessage {
		owner.ResultMsgID = delivered
		s.trackerUC.Refresh(owner.UserID)
		return
	}

	s.trackerUC.Complete(owner.UserID, msg.ID, delivered)

	fmt.Printf("[Relay] Delivered result to user %d (%s %s)\n", owner.UserID, owner.Command, owner.Keyword)

	// First page lands in the cache; the crawler fills the rest.
	s.paginationUC.Start(owner.UserID, owner.Command, owner.Keyword, msg)
}

// HandlePageClick processes a click on a translated upstream button:
// replay it on the mirror session, re-read the edited message and show
// it, with the cache as fallback.
func (s *RelayService) HandlePageClick(ctx context.Context, userID int64, chatID int64, resultMsgID int, localID string) error {
	srcMsgID, data, ok := s.callbackUC.Resolve(localID)
	if !ok {
		return fmt.Errorf("callback expired")
	}

	owner := s.trackerUC.Get(userID)
	if owner == nil {
		return fmt.Errorf("session expired")
	}
	if srcMsgID == 0 {
		srcMsgID = owner.SourceMsgID
	}

	page := derivePage(data, owner.LastPage)

	var cached *domain.CacheEntry
	if page > 0 {
		cached, _ = s.cacheRepo.Get(ctx, owner.Command, owner.Keyword, page)
	}

	if err := s.mirrorRepo.ClickButton(ctx, srcMsgID, data); err != nil {
		fmt.Printf("[Relay] Upstream click failed: %v\n", err)
		if cached != nil {
			s.showPage(ctx, owner, chatID, resultMsgID, cached.Text, s.rebuildKeyboard(cached.Buttons, owner.CanGoBack), page, srcMsgID)
			return nil
		}
		return fmt.Errorf("page fetch failed")
	}

	updated, err := s.mirrorRepo.FetchMessage(ctx, srcMsgID)
	if err != nil {
		fmt.Printf("[Relay] Fetch after click failed: %v\n", err)
		if cached != nil {
			s.showPage(ctx, owner, chatID, resultMsgID, cached.Text, s.rebuildKeyboard(cached.Buttons, owner.CanGoBack), page, srcMsgID)
			return nil
		}
		return fmt.Errorf("page fetch failed")
	}

	rows := s.callbackUC.TranslateRows(updated.Rows)
	if owner.CanGoBack {
		rows = appendBackRow(rows)
	}
	s.showPage(ctx, owner, chatID, resultMsgID, updated.Text, rows, page, updated.ID)

	if page > 0 {
		err := s.cacheRepo.Put(ctx, owner.Command, owner.Keyword, page, updated.Text, updated.FlatButtons(), s.cacheTTL)
		if err != nil {
			fmt.Printf("[Relay] Cache write failed: %v\n", err)
		}
	}
	return nil
}

func (s *RelayService) showPage(ctx context.Context, owner *domain.PendingRequest, chatID int64, msgID int, text string, rows [][]repo.ReplyButton, page, srcMsgID int) {
	if err := s.messenger.EditKeyboard(ctx, chatID, msgID, clip(text), rows); err != nil {
		fmt.Printf("[Relay] Failed to show page: %v\n", err)
		return
	}
	if page > 0 {
		owner.LastPage = page
	}
	if srcMsgID != 0 {
		owner.SourceMsgID = srcMsgID
	}
	owner.ResultMsgID = msgID
	s.trackerUC.Refresh(owner.UserID)
}

// ServeCachedPage renders a specific cached page, used when the
// front-end can satisfy a page click without touching upstream.
func (s *RelayService) ServeCachedPage(ctx context.Context, userID int64, chatID int64, msgID int, command, keyword string, page int) bool {
	entry, err := s.cacheRepo.Get(ctx, command, keyword, page)
	if err != nil || entry == nil {
		return false
	}
	owner := s.trackerUC.Get(userID)
	canGoBack := owner != nil && owner.CanGoBack
	rows := s.rebuildKeyboard(entry.Buttons, canGoBack)
	if err := s.messenger.EditKeyboard(ctx, chatID, msgID, clip(entry.Text), rows); err != nil {
		return false
	}
	if owner != nil {
		owner.LastPage = page
		owner.ResultMsgID = msgID
		s.trackerUC.Refresh(userID)
	}
	return true
}

// rebuildKeyboard turns flat cached buttons back into display rows,
// re-minting local callback identifiers.
func (s *RelayService) rebuildKeyboard(buttons []domain.Button, canGoBack bool) [][]repo.ReplyButton {
	var rows [][]repo.ReplyButton
	var current []repo.ReplyButton
	for _, b := range buttons {
		current = append(current, s.callbackUC.Translate(b))
		if len(current) >= rebuiltRowWidth {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	if canGoBack {
		rows = appendBackRow(rows)
	}
	return rows
}

func appendBackRow(rows [][]repo.ReplyButton) [][]repo.ReplyButton {
	return append(rows, []repo.ReplyButton{{Label: backButtonLabel, Data: CallbackBack}})
}

// sourceMsgID finds the upstream message the cached buttons belong to
func sourceMsgID(buttons []domain.Button) int {
	for _, b := range buttons {
		if b.SourceMsgID != 0 {
			return b.SourceMsgID
		}
	}
	return 0
}

var pagePattern = regexp.MustCompile(`page_(\d+)`)

// derivePage guesses the page number a callback payload navigates to.
// Falls back to the page after the one last shown.
func derivePage(data []byte, lastPage int) int {
	if m := pagePattern.FindSubmatch(data); m != nil {
		if page, err := strconv.Atoi(string(m[1])); err == nil {
			return page
		}
	}
	if lastPage > 0 {
		return lastPage + 1
	}
	return 0
}

// clip truncates to the outbound budget without splitting a rune.
func clip(s string) string {
	if len(s) <= maxReplyLen {
		return s
	}
	cut := maxReplyLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
