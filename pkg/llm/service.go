package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/log"
)

const (
	// MaxHistory is the number of messages kept per session.
	MaxHistory = 20

	// PromptHistory is the number of past messages sent with each turn.
	PromptHistory = 10

	systemPrompt = "You are a helpful virtual human assistant."
)

// Reply modes.
const (
	ModeProduction = "production"
	ModeDemo       = "demo"
	ModeFallback   = "fallback"
)

// Input is one user turn.
type Input struct {
	Message     string
	SessionID   string
	Context     string
	Personality string
	MaxTokens   int
}

// Reply is the assistant's answer plus animation cues.
type Reply struct {
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Analysis  Analysis  `json:"animation"`
	Triggers  Triggers  `json:"animation_triggers"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is a stored message.
type HistoryEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo describes a conversation.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

type session struct {
	info    SessionInfo
	history []HistoryEntry
}

// Service holds per-session conversation state around a provider.
// A nil provider puts the service in demo mode.
type Service struct {
	provider Provider
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a service. Pass nil for demo mode.
func NewService(p Provider) *Service {
	s := &Service{
		provider: p,
		log:      log.Component("llm"),
		sessions: make(map[string]*session),
	}
	if p == nil {
		s.log.Warn("OpenAI API key not configured, running in demo mode")
	}
	return s
}

// DemoMode reports whether replies are canned.
func (s *Service) DemoMode() bool {
	return s.provider == nil
}

// Mode returns "demo" or "production".
func (s *Service) Mode() string {
	if s.DemoMode() {
		return ModeDemo
	}
	return ModeProduction
}

// Health checks the provider. Demo mode is always healthy.
func (s *Service) Health(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Health(ctx)
}

// Generate answers one user turn. It never fails: provider errors produce
// a canned reply in fallback mode with Error set.
func (s *Service) Generate(ctx context.Context, in Input) *Reply {
	if in.SessionID == "" {
		in.SessionID = uuid.New().String()
	}

	reply := &Reply{SessionID: in.SessionID, Mode: ModeProduction}

	if s.provider == nil {
		reply.Mode = ModeDemo
		reply.Response = DemoResponse(in.Message)
	} else {
		resp, err := s.provider.Chat(ctx, &ChatRequest{
			Messages:  s.buildMessages(in),
			MaxTokens: in.MaxTokens,
		})
		if err != nil {
			s.log.Error("error generating response", "session_id", in.SessionID, "error", err)
			reply.Mode = ModeFallback
			reply.Error = err.Error()
			reply.Response = DemoResponse(in.Message)
		} else {
			reply.Response = resp.Content
		}
	}

	return s.finish(in, reply)
}

// finish records the turn and attaches the animation cues.
func (s *Service) finish(in Input, reply *Reply) *Reply {
	s.record(in.SessionID, in.Message, reply.Response)
	reply.Analysis = Analyze(reply.Response)
	reply.Triggers = FindTriggers(reply.Response)
	reply.Timestamp = time.Now()
	return reply
}

// SystemPrompt builds the system message for a turn.
func SystemPrompt(personality, contextText string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if personality != "" {
		fmt.Fprintf(&b, " Personality: %s.", personality)
	}
	if contextText != "" {
		fmt.Fprintf(&b, " Context: %s.", contextText)
	}
	return b.String()
}

func (s *Service) buildMessages(in Input) []Message {
	msgs := []Message{{Role: RoleSystem, Content: SystemPrompt(in.Personality, in.Context)}}

	s.mu.RLock()
	if sess, ok := s.sessions[in.SessionID]; ok {
		h := sess.history
		if len(h) > PromptHistory {
			h = h[len(h)-PromptHistory:]
		}
		for _, e := range h {
			msgs = append(msgs, Message{Role: e.Role, Content: e.Content})
		}
	}
	s.mu.RUnlock()

	return append(msgs, Message{Role: RoleUser, Content: in.Message})
}

func (s *Service) record(id, user, assistant string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{info: SessionInfo{ID: id, CreatedAt: now}}
		s.sessions[id] = sess
	}
	sess.history = append(sess.history,
		HistoryEntry{Role: RoleUser, Content: user, Timestamp: now},
		HistoryEntry{Role: RoleAssistant, Content: assistant, Timestamp: now},
	)
	if len(sess.history) > MaxHistory {
		sess.history = append([]HistoryEntry(nil), sess.history[len(sess.history)-MaxHistory:]...)
	}
	sess.info.LastActivity = now
	sess.info.MessageCount += 2
}

// Sessions lists conversations, most recently active first.
func (s *Service) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// History returns a copy of a session's messages, or nil if unknown.
func (s *Service) History(id string) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]HistoryEntry, len(sess.history))
	copy(out, sess.history)
	return out
}

// DeleteSession forgets a session. It reports whether it existed.
func (s *Service) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Close releases the provider.
func (s *Service) Close() error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Close()
}
