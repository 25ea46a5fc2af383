package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
	"github.com/atai-labs/search-mirror/internal/biz/usecase"
	"github.com/atai-labs/search-mirror/internal/service"
)

const welcomeText = `👋 Welcome!

Send me anything you want to find and I will suggest keywords,
or use a command directly:

/search <keyword>: find groups and channels
/text <keyword>: full-text message search
/human <keyword>: find users
/topchat: popular chats right now`

const helpText = `🔍 How to use this bot

• Type any text and pick one of the suggested keywords.
• Or run /search, /text or /human with a keyword.
• Use the buttons under results to flip pages.
• Results are cached, repeat searches answer instantly.`

const searchingText = "🔄 Searching, please wait..."

// TelegramServer handles Telegram update processing
type TelegramServer struct {
	bot       *tgbotapi.BotAPI
	messenger repo.MessengerRepo
	sessionUC *usecase.SessionUsecase
	suggestUC *usecase.SuggestUsecase
	relaySvc  *service.RelayService
	adminSvc  *service.AdminService
	sweeper   *service.CacheSweeper

	// Suggested keyword lists pending a user's pick
	suggestionsMu sync.Mutex
	suggestions   map[int64][]string

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTelegramServer creates a new Telegram server
func NewTelegramServer(
	bot *tgbotapi.BotAPI,
	messenger repo.MessengerRepo,
	sessionUC *usecase.SessionUsecase,
	suggestUC *usecase.SuggestUsecase,
	relaySvc *service.RelayService,
	adminSvc *service.AdminService,
	sweeper *service.CacheSweeper,
) *TelegramServer {
	return &TelegramServer{
		bot:         bot,
		messenger:   messenger,
		sessionUC:   sessionUC,
		suggestUC:   suggestUC,
		relaySvc:    relaySvc,
		adminSvc:    adminSvc,
		sweeper:     sweeper,
		suggestions: make(map[int64][]string),
		stop:        make(chan struct{}),
	}
}

// Start starts the server
func (s *TelegramServer) Start() error {
	s.relaySvc.StartEventLoop()
	if s.sweeper != nil {
		s.sweeper.Start(context.Background())
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := s.bot.GetUpdatesChan(updateConfig)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stop:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				s.handleUpdate(update)
			}
		}
	}()

	fmt.Printf("[Server] Listening as @%s\n", s.bot.Self.UserName)
	return nil
}

// Stop stops the server
func (s *TelegramServer) Stop() {
	close(s.stop)
	s.bot.StopReceivingUpdates()
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.wg.Wait()
}

// handleUpdate dispatches a single update behind a panic boundary
func (s *TelegramServer) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Server] Recovered in update handler: %v\n", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(update.Message)
	}
}

func (s *TelegramServer) handleMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Admin replies to forwarded customer messages go back to the user
	if s.adminSvc.IsAdmin(userID) && msg.ReplyToMessage != nil {
		if s.adminSvc.RouteAdminReply(ctx, msg.ReplyToMessage.Text, msg.Text) {
			_, _ = s.messenger.SendText(ctx, chatID, "✅ Reply delivered")
			return
		}
	}

	if msg.IsCommand() {
		s.handleCommand(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	s.handleFreeText(ctx, userID, chatID, msg.From.UserName, text)
}

func (s *TelegramServer) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	keyword := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		s.adminSvc.NotifyNewUser(ctx, userID, msg.From.UserName, msg.From.FirstName)
		rows := [][]repo.ReplyButton{
			{{Label: "🔥 Top chats", Data: "cmd_topchat"}},
			{{Label: "❓ Help", Data: "show_help"}},
		}
		if _, err := s.messenger.SendKeyboard(ctx, chatID, welcomeText, rows); err != nil {
			fmt.Printf("[Server] Failed to send welcome: %v\n", err)
		}
	case "help":
		_, _ = s.messenger.SendText(ctx, chatID, helpText)
	case "search", "text", "human":
		if keyword == "" {
			_, _ = s.messenger.SendText(ctx, chatID, "Usage: /"+msg.Command()+" <keyword>")
			return
		}
		s.runSearch(ctx, userID, chatID, msg.From.UserName, "/"+msg.Command(), keyword, false)
	case "topchat":
		s.runSearch(ctx, userID, chatID, msg.From.UserName, "/topchat", "", false)
	default:
		_, _ = s.messenger.SendText(ctx, chatID, "Unknown command. Try /help.")
	}
}

// handleFreeText turns arbitrary text into keyword suggestions
func (s *TelegramServer) handleFreeText(ctx context.Context, userID, chatID int64, username, text string) {
	s.sessionUC.Begin(userID, text)

	keywords := s.suggestUC.Suggest(ctx, userID, text)
	s.setSuggestions(userID, keywords)

	rows := keywordRows(keywords)
	rows = append(rows, []repo.ReplyButton{
		{Label: "✏️ Use my text as-is", Data: "kw_raw"},
		{Label: "💬 Contact support", Data: "cmd_info"},
	})

	prompt := fmt.Sprintf("You typed: %s\n\nPick a keyword to search for:", text)
	if _, err := s.messenger.SendKeyboard(ctx, chatID, prompt, rows); err != nil {
		fmt.Printf("[Server] Failed to send suggestions: %v\n", err)
	}
}

func (s *TelegramServer) handleCallback(cb *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	userID := cb.From.ID
	data := cb.Data

	chatID := int64(0)
	msgID := 0
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
		msgID = cb.Message.MessageID
	}

	switch {
	case strings.HasPrefix(data, "cb_"):
		err := s.relaySvc.HandlePageClick(ctx, userID, chatID, msgID, data)
		if err != nil {
			_ = s.messenger.AnswerCallback(ctx, cb.ID, "⚠️ "+err.Error(), true)
			return
		}
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)

	case data == "show_help":
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
		_, _ = s.messenger.SendText(ctx, chatID, helpText)

	case data == "cmd_topchat":
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
		s.runSearch(ctx, userID, chatID, cb.From.UserName, "/topchat", "", false)

	case data == "cmd_info":
		session := s.sessionUC.Get(userID)
		query := ""
		if session != nil {
			query = session.Query
		}
		s.adminSvc.ForwardCustomerMessage(ctx, userID, cb.From.UserName, query)
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "✅ Forwarded to support", false)

	case data == service.CallbackBack:
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
		s.showChoices(ctx, userID, chatID, msgID)

	case data == "kw_raw" || strings.HasPrefix(data, "kw_"):
		session := s.sessionUC.Get(userID)
		if session == nil {
			_ = s.messenger.AnswerCallback(ctx, cb.ID, "Session expired, type your query again", true)
			return
		}
		keyword := session.Query
		if data != "kw_raw" {
			if idx, err := strconv.Atoi(strings.TrimPrefix(data, "kw_")); err == nil {
				if picked, ok := s.getSuggestion(userID, idx); ok {
					keyword = picked
				}
			}
		}
		s.sessionUC.SetKeyword(userID, keyword)
		s.sessionUC.SetStage(userID, domain.StageAwaitingChoice, true)
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
		s.showChoices(ctx, userID, chatID, msgID)

	case strings.HasPrefix(data, "cmd_"):
		command := "/" + strings.TrimPrefix(data, "cmd_")
		session := s.sessionUC.Get(userID)
		if session == nil {
			_ = s.messenger.AnswerCallback(ctx, cb.ID, "Session expired, type your query again", true)
			return
		}
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
		s.sessionUC.SetStage(userID, domain.StageSearching, true)
		s.runSearchInPlace(ctx, userID, chatID, msgID, cb.From.UserName, command, session.Keyword)

	default:
		_ = s.messenger.AnswerCallback(ctx, cb.ID, "", false)
	}
}

// showChoices renders the command choice keyboard for the session keyword
func (s *TelegramServer) showChoices(ctx context.Context, userID, chatID int64, msgID int) {
	session := s.sessionUC.Get(userID)
	if session == nil {
		_, _ = s.messenger.SendText(ctx, chatID, "Session expired, type your query again.")
		return
	}

	rows := [][]repo.ReplyButton{
		{
			{Label: "🔍 Groups & channels", Data: "cmd_search"},
			{Label: "📝 Full-text", Data: "cmd_text"},
		},
		{
			{Label: "👤 Users", Data: "cmd_human"},
			{Label: "💬 Contact support", Data: "cmd_info"},
		},
	}
	text := fmt.Sprintf("Keyword: %s\n\nWhere should I look?", session.Keyword)
	if err := s.messenger.EditKeyboard(ctx, chatID, msgID, text, rows); err != nil {
		_, _ = s.messenger.SendKeyboard(ctx, chatID, text, rows)
	}
}

// runSearch sends a placeholder and dispatches a search for it
func (s *TelegramServer) runSearch(ctx context.Context, userID, chatID int64, username, command, keyword string, canGoBack bool) {
	placeholderID, err := s.messenger.SendText(ctx, chatID, searchingText)
	if err != nil {
		fmt.Printf("[Server] Failed to send placeholder: %v\n", err)
		return
	}
	s.dispatch(ctx, userID, chatID, placeholderID, username, command, keyword, canGoBack)
}

// runSearchInPlace reuses an existing message as the placeholder
func (s *TelegramServer) runSearchInPlace(ctx context.Context, userID, chatID int64, msgID int, username, command, keyword string) {
	if err := s.messenger.EditKeyboard(ctx, chatID, msgID, searchingText, nil); err != nil {
		s.runSearch(ctx, userID, chatID, username, command, keyword, true)
		return
	}
	s.dispatch(ctx, userID, chatID, msgID, username, command, keyword, true)
}

func (s *TelegramServer) dispatch(ctx context.Context, userID, chatID int64, placeholderID int, username, command, keyword string, canGoBack bool) {
	hit, err := s.relaySvc.Dispatch(ctx, &service.SearchRequest{
		UserID:           userID,
		ChatID:           chatID,
		PlaceholderMsgID: placeholderID,
		Command:          command,
		Keyword:          keyword,
		CanGoBack:        canGoBack,
	})
	if err != nil {
		fmt.Printf("[Server] Dispatch failed: %v\n", err)
		_ = s.messenger.EditKeyboard(ctx, chatID, placeholderID, "⚠️ Search is unavailable right now, try again later.", nil)
		return
	}
	s.adminSvc.NotifySearch(ctx, userID, username, command, keyword, hit)
}

func (s *TelegramServer) setSuggestions(userID int64, keywords []string) {
	s.suggestionsMu.Lock()
	defer s.suggestionsMu.Unlock()
	s.suggestions[userID] = keywords
}

func (s *TelegramServer) getSuggestion(userID int64, idx int) (string, bool) {
	s.suggestionsMu.Lock()
	defer s.suggestionsMu.Unlock()
	keywords := s.suggestions[userID]
	if idx < 0 || idx >= len(keywords) {
		return "", false
	}
	return keywords[idx], true
}

// keywordRows lays suggested keywords out two per row
func keywordRows(keywords []string) [][]repo.ReplyButton {
	var rows [][]repo.ReplyButton
	var current []repo.ReplyButton
	for i, kw := range keywords {
		current = append(current, repo.ReplyButton{Label: kw, Data: "kw_" + strconv.Itoa(i)})
		if len(current) == 2 {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}
