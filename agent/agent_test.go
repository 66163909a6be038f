package agent

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/LTKSK/go-coding-agent/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedCompleter returns its responses in order and records every request.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionMessage
	errAt     int // 1-based call that fails; 0 means never
	requests  []openai.ChatCompletionRequest
	onCall    func(n int)
}

func (c *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	n := len(c.requests)
	if c.onCall != nil {
		c.onCall(n)
	}
	if n == c.errAt {
		return openai.ChatCompletionResponse{}, errors.New("model unavailable")
	}
	if n > len(c.responses) {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: c.responses[n-1]}},
	}, nil
}

// stubTools answers every call with a fixed result.
type stubTools struct {
	calls []string
}

func (s *stubTools) Schemas() []openai.Tool {
	return []openai.Tool{{
		Type:     openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{Name: "list"},
	}}
}

func (s *stubTools) Call(_ context.Context, name, args string) string {
	s.calls = append(s.calls, name+" "+args)
	return `{"ok":true,"files":["main.go"]}`
}

func toolCallMessage(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       id,
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func answer(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestManager(t *testing.T) *memory.Manager {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 3, 4, 9, 0, 0, 0, time.Local)}
	m, err := memory.NewManager(filepath.Join(t.TempDir(), "memory.db"), memory.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestRunner(t *testing.T, completer Completer, tools ToolSet, budget Budget) *Runner {
	t.Helper()
	r, err := NewRunner(completer, tools, "test-model", budget)
	require.NoError(t, err)
	return r
}
