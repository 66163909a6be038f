package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/LTKSK/go-coding-agent/logging"
	"github.com/LTKSK/go-coding-agent/memory"
)

const (
	commandExit       = "exit"
	commandQuit       = "quit"
	commandNewSession = "new-session"

	// resumeTail is how many restored user/assistant messages are shown on resume.
	resumeTail        = 6
	resumePreviewSize = 200
)

// Console is the line-oriented channel the driver talks to the human through.
type Console interface {
	ReadLine(prompt string) (string, error)
	Printf(format string, args ...any)
}

// Driver is the interactive conversation loop. It owns the current session
// handle and the in-memory context sent to the model.
type Driver struct {
	manager     *memory.Manager
	runner      *Runner
	console     Console
	projectPath string

	session  *memory.Session
	messages []openai.ChatCompletionMessage
}

func NewDriver(manager *memory.Manager, runner *Runner, console Console, projectPath string) *Driver {
	return &Driver{
		manager:     manager,
		runner:      runner,
		console:     console,
		projectPath: projectPath,
	}
}

// Session returns the current session handle.
func (d *Driver) Session() *memory.Session {
	return d.session
}

// Messages returns a copy of the in-memory context, system prompt included.
func (d *Driver) Messages() []openai.ChatCompletionMessage {
	return append([]openai.ChatCompletionMessage(nil), d.messages...)
}

// Start resumes the project's active session if there is one, otherwise it
// starts a new session.
func (d *Driver) Start(ctx context.Context) error {
	active, err := d.manager.GetActiveSession(ctx, d.projectPath)
	if err != nil {
		return fmt.Errorf("failed to look up active session: %w", err)
	}
	if active == nil {
		return d.startNewSession(ctx)
	}
	return d.resume(ctx, active)
}

// Resume restores the session with the given id. A missing session is an error.
// An ended session cannot take new messages, so its history is carried into a
// fresh session instead.
func (d *Driver) Resume(ctx context.Context, sessionID string) error {
	session, err := d.manager.RestoreSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return d.resume(ctx, session)
}

func (d *Driver) resume(ctx context.Context, session *memory.Session) error {
	stored, err := d.manager.GetSessionMessages(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to get session messages: %w", err)
	}

	d.messages = append(d.systemMessages(), convertToOpenAIMessages(stored)...)
	d.printTail(stored)

	if !session.IsActive() {
		d.console.Printf("Session %s has ended; continuing its conversation in a new session.\n", session.ID)
		previous := d.messages
		if err := d.startNewSession(ctx); err != nil {
			return err
		}
		d.messages = previous
		return nil
	}

	d.session = session
	d.console.Printf("Resumed session: %s (%d messages)\n", session.ID, len(stored))
	return nil
}

func (d *Driver) startNewSession(ctx context.Context) error {
	session, err := d.manager.StartSession(ctx, d.projectPath, d.runner.Model())
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	d.session = session
	d.messages = d.systemMessages()
	d.console.Printf("Started new session: %s\n", session.ID)
	d.console.Printf("Use --session %s to resume this session later\n", session.ID)
	return nil
}

func (d *Driver) systemMessages() []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: SystemPrompt(d.runner.Budget()),
		},
	}
}

// Run reads lines until exit or end of input. It returns an error only for
// failures that make continuing unsafe, such as storage errors.
func (d *Driver) Run(ctx context.Context) error {
	for {
		line, err := d.console.ReadLine("You: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.console.Printf("\n")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		done, err := d.HandleLine(ctx, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// HandleLine processes one line of input. done reports that the loop should stop.
func (d *Driver) HandleLine(ctx context.Context, line string) (done bool, err error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false, nil
	}

	switch strings.ToLower(input) {
	case commandExit, commandQuit:
		d.console.Printf("Goodbye!\n")
		return true, nil
	case commandNewSession:
		return false, d.newSession(ctx)
	}

	return false, d.handleUserInput(ctx, input)
}

func (d *Driver) newSession(ctx context.Context) error {
	if err := d.manager.EndSession(ctx, d.session); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return d.startNewSession(ctx)
}

func (d *Driver) handleUserInput(ctx context.Context, input string) error {
	if _, err := d.manager.SaveMessage(ctx, d.session, memory.RoleUser, input, nil, nil); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}
	d.messages = append(d.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	result, err := d.runner.Run(ctx, d.messages, d.persistStep)
	if result != nil {
		d.messages = append(d.messages, result.Messages...)
	}
	if err != nil {
		if memory.IsStorageError(err) || ctx.Err() != nil {
			return err
		}
		logging.Error().Err(err).Msg("turn failed")
		d.console.Printf("Error: %v\n", err)
		return nil
	}

	if result.Exhausted {
		d.console.Printf("Stopped after %d steps without a final answer.\n", result.Steps)
	}
	if result.Text == "" {
		return nil
	}

	if _, err := d.manager.SaveMessage(ctx, d.session, memory.RoleAssistant, result.Text, nil, nil); err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}
	d.console.Printf("Assistant: %s\n\n", result.Text)
	return nil
}

// persistStep stores a step before the runner calls the model again.
func (d *Driver) persistStep(ctx context.Context, step Step) error {
	for i, call := range step.Calls {
		d.console.Printf("Tool call: %s %s\n", call.Tool, string(call.Arguments))
		logging.Debug().Int("step", step.Index).Str("tool", call.Tool).RawJSON("result", step.Results[i].Output).Msg("tool executed")
	}

	if _, err := d.manager.SaveMessage(ctx, d.session, memory.RoleTool, step.Assistant.Content, step.Calls, step.Results); err != nil {
		return fmt.Errorf("failed to save step %d: %w", step.Index, err)
	}
	return nil
}

func (d *Driver) printTail(stored []*memory.Message) {
	var visible []*memory.Message
	for _, msg := range stored {
		if msg.Role != memory.RoleTool {
			visible = append(visible, msg)
		}
	}
	if len(visible) == 0 {
		return
	}
	if len(visible) > resumeTail {
		visible = visible[len(visible)-resumeTail:]
	}

	d.console.Printf("--- recent messages ---\n")
	for _, msg := range visible {
		label := "You"
		if msg.Role == memory.RoleAssistant {
			label = "Assistant"
		}
		d.console.Printf("%s: %s\n", label, preview(msg.Content, resumePreviewSize))
	}
	d.console.Printf("---\n")
}

func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// convertToOpenAIMessages rebuilds the model context from stored messages.
// Tool rows are skipped: their payloads are kept for the record, and replaying
// them without the matching assistant tool_calls would be rejected by the API.
func convertToOpenAIMessages(stored []*memory.Message) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	for _, msg := range stored {
		if msg.Role == memory.RoleTool {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages
}
