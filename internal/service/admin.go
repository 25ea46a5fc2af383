package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

// AdminService sends operator notifications and relays the
// customer-service conversation between users and the admin.
type AdminService struct {
	messenger repo.MessengerRepo
	adminID   int64
}

// NewAdminService creates a new admin service. A zero adminID disables
// all notifications.
func NewAdminService(messenger repo.MessengerRepo, adminID int64) *AdminService {
	return &AdminService{messenger: messenger, adminID: adminID}
}

// Enabled reports whether an admin chat is configured
func (s *AdminService) Enabled() bool {
	return s.adminID != 0
}

// NotifyNewUser tells the admin a user started the bot
func (s *AdminService) NotifyNewUser(ctx context.Context, userID int64, username, firstName string) {
	if !s.Enabled() {
		return
	}
	text := fmt.Sprintf(
		"🆕 New user\nID: %d\nUsername: @%s\nName: %s\nTime: %s",
		userID, displayName(username), firstName, time.Now().Format("2006-01-02 15:04:05"),
	)
	s.send(ctx, text)
}

// NotifySearch tells the admin what was searched
func (s *AdminService) NotifySearch(ctx context.Context, userID int64, username, command, keyword string, cacheHit bool) {
	if !s.Enabled() {
		return
	}
	source := "upstream"
	if cacheHit {
		source = "cache"
	}
	text := fmt.Sprintf(
		"🔍 Search\nID: %d\nUsername: @%s\nCommand: %s\nKeyword: %s\nServed from: %s",
		userID, displayName(username), command, keyword, source,
	)
	s.send(ctx, text)
}

// ForwardCustomerMessage relays a user's free-form message to the
// admin so the admin can reply to it.
func (s *AdminService) ForwardCustomerMessage(ctx context.Context, userID int64, username, content string) {
	if !s.Enabled() {
		return
	}
	text := fmt.Sprintf(
		"💬 Customer message\nID: %d\nUsername: @%s\n\n%s\n\nReply to this message to answer.",
		userID, displayName(username), clip(content),
	)
	s.send(ctx, text)
}

// idPattern matches the "ID: <n>" line embedded in forwarded messages
var idPattern = regexp.MustCompile(`ID:\s*(\d+)`)

// RouteAdminReply parses the user ID out of the message the admin
// replied to and delivers the reply text to that user. Returns false
// when the replied-to message carries no user ID.
func (s *AdminService) RouteAdminReply(ctx context.Context, repliedText, replyText string) bool {
	m := idPattern.FindStringSubmatch(repliedText)
	if m == nil {
		return false
	}
	userID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return false
	}
	if _, err := s.messenger.SendText(ctx, userID, "📩 Support reply:\n\n"+clip(replyText)); err != nil {
		fmt.Printf("[Admin] Failed to deliver reply to %d: %v\n", userID, err)
		return false
	}
	return true
}

// IsAdmin reports whether the given user is the configured admin
func (s *AdminService) IsAdmin(userID int64) bool {
	return s.Enabled() && userID == s.adminID
}

func (s *AdminService) send(ctx context.Context, text string) {
	if _, err := s.messenger.SendText(ctx, s.adminID, text); err != nil {
		fmt.Printf("[Admin] Notification failed: %v\n", err)
	}
}

func displayName(username string) string {
	if username == "" {
		return "unknown"
	}
	return username
}
