package service

import (
	"context"
	"strings"
	"testing"
)

func TestAdminDisabledWithoutID(t *testing.T) {
	messenger := &mockMessenger{}
	svc := NewAdminService(messenger, 0)

	if svc.Enabled() {
		t.Error("Expected admin notifications disabled")
	}

	svc.NotifyNewUser(context.Background(), 1, "alice", "Alice")
	if len(messenger.sent) != 0 {
		t.Errorf("Expected no traffic when disabled, got %v", messenger.sent)
	}
}

func TestAdminNotifyNewUser(t *testing.T) {
	messenger := &mockMessenger{}
	svc := NewAdminService(messenger, 999)

	svc.NotifyNewUser(context.Background(), 42, "alice", "Alice")

	if len(messenger.sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(messenger.sent))
	}
	if !strings.Contains(messenger.sent[0], "ID: 42") {
		t.Errorf("Expected user ID in notification: %q", messenger.sent[0])
	}
	if !strings.Contains(messenger.sent[0], "@alice") {
		t.Errorf("Expected username in notification: %q", messenger.sent[0])
	}
}

func TestAdminNotifySearchSource(t *testing.T) {
	messenger := &mockMessenger{}
	svc := NewAdminService(messenger, 999)

	svc.NotifySearch(context.Background(), 42, "alice", "/search", "golang", true)
	if !strings.Contains(messenger.sent[0], "cache") {
		t.Errorf("Expected cache source noted: %q", messenger.sent[0])
	}

	svc.NotifySearch(context.Background(), 42, "alice", "/search", "golang", false)
	if !strings.Contains(messenger.sent[1], "upstream") {
		t.Errorf("Expected upstream source noted: %q", messenger.sent[1])
	}
}

func TestAdminRouteReply(t *testing.T) {
	messenger := &mockMessenger{}
	svc := NewAdminService(messenger, 999)

	forwarded := "💬 Customer message\nID: 42\nUsername: @alice\n\nwhere is my result?\n\nReply to this message to answer."

	if !svc.RouteAdminReply(context.Background(), forwarded, "coming right up") {
		t.Fatal("Expected reply routed")
	}
	if len(messenger.sent) != 1 || !strings.Contains(messenger.sent[0], "coming right up") {
		t.Errorf("Expected reply delivered, got %v", messenger.sent)
	}
}

func TestAdminRouteReplyNoID(t *testing.T) {
	messenger := &mockMessenger{}
	svc := NewAdminService(messenger, 999)

	if svc.RouteAdminReply(context.Background(), "just some text", "reply") {
		t.Error("Expected routing to fail without an embedded ID")
	}
	if len(messenger.sent) != 0 {
		t.Errorf("Expected nothing sent, got %v", messenger.sent)
	}
}

func TestAdminIsAdmin(t *testing.T) {
	svc := NewAdminService(&mockMessenger{}, 999)
	if !svc.IsAdmin(999) {
		t.Error("Expected configured ID to be admin")
	}
	if svc.IsAdmin(1) {
		t.Error("Expected other users not admin")
	}
}
