package memory

import (
	"fmt"
	"time"
)

// Role is the author of a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the roles the messages table accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

func parseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Session represents a conversation session
type Session struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	ProjectPath string     `json:"project_path"`
	ModelUsed   string     `json:"model_used"`
}

// Message represents a single message in the conversation.
// ToolCalls and ToolResults hold the serialized payloads exactly as stored;
// use Calls and Results for the validated form.
type Message struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	ToolCalls   *string   `json:"tool_calls,omitempty"`
	ToolResults *string   `json:"tool_results,omitempty"`
}

// SessionSummary represents a brief summary of a session for listing
type SessionSummary struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ProjectPath  string     `json:"project_path"`
	ModelUsed    string     `json:"model_used"`
	MessageCount int        `json:"message_count"`
	LastMessage  string     `json:"last_message"`
}

func (s *Session) IsActive() bool {
	return s.EndedAt == nil
}

func (s *Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Calls decodes the tool-call payload. A message without one yields nil.
func (m *Message) Calls() ([]ToolCall, error) {
	return DecodeToolCalls(m.ToolCalls)
}

// Results decodes the tool-result payload. A message without one yields nil.
func (m *Message) Results() ([]ToolResult, error) {
	return DecodeToolResults(m.ToolResults)
}
