package repo

import "context"

// ReplyButton is a button ready for the end-user-facing protocol:
// either a URL or a callback token that fits the outbound size budget.
type ReplyButton struct {
	Label string
	URL   string
	Data  string
}

// MessengerRepo is the end-user messaging interface.
// Responsible for delivering messages through the bot protocol.
type MessengerRepo interface {
	// SendText sends a plain message and returns its message ID.
	SendText(ctx context.Context, chatID int64, text string) (int, error)

	// SendKeyboard sends a message with an inline keyboard.
	SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]ReplyButton) (int, error)

	// EditKeyboard rewrites an existing message's text and keyboard.
	EditKeyboard(ctx context.Context, chatID int64, msgID int, text string, rows [][]ReplyButton) error

	// DeleteMessage removes a message; failures are not fatal.
	DeleteMessage(ctx context.Context, chatID int64, msgID int) error

	// AnswerCallback acknowledges a button click, optionally with an
	// alert popup.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
