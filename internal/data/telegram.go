package data

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// messengerRepo implements the end-user messaging repository over the
// Telegram Bot API
type messengerRepo struct {
	bot *tgbotapi.BotAPI
}

// NewMessengerRepo creates a new messenger repository
func NewMessengerRepo(bot *tgbotapi.BotAPI) repo.MessengerRepo {
	return &messengerRepo{bot: bot}
}

// SendText sends a plain message
func (r *messengerRepo) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := r.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendKeyboard sends a message with an inline keyboard
func (r *messengerRepo) SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]repo.ReplyButton) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := buildMarkup(rows); ok {
		msg.ReplyMarkup = markup
	}
	sent, err := r.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send keyboard message: %w", err)
	}
	return sent.MessageID, nil
}

// EditKeyboard rewrites an existing message's text and keyboard
func (r *messengerRepo) EditKeyboard(ctx context.Context, chatID int64, msgID int, text string, rows [][]repo.ReplyButton) error {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	if markup, ok := buildMarkup(rows); ok {
		edit.ReplyMarkup = &markup
	}
	if _, err := r.bot.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message
func (r *messengerRepo) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button click
func (r *messengerRepo) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	var cb tgbotapi.CallbackConfig
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	} else {
		cb = tgbotapi.NewCallback(callbackID, text)
	}
	if _, err := r.bot.Request(cb); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// buildMarkup converts reply buttons into Bot API keyboard markup
func buildMarkup(rows [][]repo.ReplyButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var outRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				outRow = append(outRow, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				outRow = append(outRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
		}
		if len(outRow) > 0 {
			keyboard = append(keyboard, outRow)
		}
	}
	if len(keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...), true
}
