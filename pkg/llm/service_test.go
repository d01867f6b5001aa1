package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestService_DemoMode(t *testing.T) {
	svc := NewService(nil)

	reply := svc.Generate(context.Background(), Input{Message: "hello", SessionID: "s1"})
	if reply.Mode != ModeDemo {
		t.Errorf("expected demo mode, got %s", reply.Mode)
	}
	if !strings.Contains(reply.Response, "demo mode") {
		t.Errorf("unexpected demo reply %q", reply.Response)
	}
	if len(reply.Triggers.Gestures) == 0 || reply.Triggers.Gestures[0] != "wave" {
		t.Errorf("expected wave trigger from greeting reply, got %v", reply.Triggers.Gestures)
	}
	if len(svc.History("s1")) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(svc.History("s1")))
	}
}

func TestService_Production(t *testing.T) {
	mock := NewMock("Great question!")
	svc := NewService(mock)

	reply := svc.Generate(context.Background(), Input{
		Message:     "What is 2+2?",
		SessionID:   "s1",
		Personality: "patient",
		Context:     "math lesson",
	})
	if reply.Mode != ModeProduction || reply.Response != "Great question!" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if reply.Analysis.Emotion != "happy" {
		t.Errorf("expected happy analysis, got %s", reply.Analysis.Emotion)
	}

	req := mock.LastRequest()
	if req == nil || len(req.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %+v", req)
	}
	want := "You are a helpful virtual human assistant. Personality: patient. Context: math lesson."
	if req.Messages[0].Content != want {
		t.Errorf("system prompt = %q", req.Messages[0].Content)
	}
}

func TestService_GeneratesSessionID(t *testing.T) {
	svc := NewService(nil)
	reply := svc.Generate(context.Background(), Input{Message: "hi"})
	if reply.SessionID == "" {
		t.Fatal("expected generated session id")
	}
}

func TestService_Fallback(t *testing.T) {
	svc := NewService(FailingMock(&APIError{Status: 500, Message: "boom"}))

	reply := svc.Generate(context.Background(), Input{Message: "help", SessionID: "s1"})
	if reply.Mode != ModeFallback {
		t.Errorf("expected fallback, got %s", reply.Mode)
	}
	if !strings.Contains(reply.Error, "boom") {
		t.Errorf("expected error text, got %q", reply.Error)
	}
	if !strings.HasPrefix(reply.Response, "I'm here to help you learn!") {
		t.Errorf("expected canned reply, got %q", reply.Response)
	}
}

func TestService_HistoryWindow(t *testing.T) {
	mock := NewMock("noted")
	svc := NewService(mock)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		svc.Generate(ctx, Input{Message: fmt.Sprintf("turn %d", i), SessionID: "s1"})
	}

	if got := len(svc.History("s1")); got != MaxHistory {
		t.Errorf("expected history capped at %d, got %d", MaxHistory, got)
	}

	// system + last 10 + current user turn
	if got := len(mock.LastRequest().Messages); got != PromptHistory+2 {
		t.Errorf("expected %d prompt messages, got %d", PromptHistory+2, got)
	}

	// Sessions are isolated.
	svc.Generate(ctx, Input{Message: "other", SessionID: "s2"})
	if got := len(mock.LastRequest().Messages); got != 2 {
		t.Errorf("new session should start empty, got %d messages", got)
	}
}

func TestService_Sessions(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()
	svc.Generate(ctx, Input{Message: "a", SessionID: "s1"})
	svc.Generate(ctx, Input{Message: "b", SessionID: "s2"})
	svc.Generate(ctx, Input{Message: "c", SessionID: "s2"})

	sessions := svc.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "s2" || sessions[0].MessageCount != 4 {
		t.Errorf("expected s2 most recent with 4 messages, got %+v", sessions[0])
	}

	if !svc.DeleteSession("s1") {
		t.Error("expected delete to succeed")
	}
	if svc.DeleteSession("s1") {
		t.Error("second delete should report missing")
	}
	if svc.History("s1") != nil {
		t.Error("deleted session should have no history")
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{401, false},
		{400, false},
	}
	for _, tt := range tests {
		e := &APIError{Status: tt.code}
		if e.Temporary() != tt.retryable {
			t.Errorf("status %d temporary = %v", tt.code, e.Temporary())
		}
	}
	if !(&APIError{Status: 401}).Unauthorized() {
		t.Error("401 should be unauthorized")
	}
}
