package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/LTKSK/go-coding-agent/logging"
	"github.com/LTKSK/go-coding-agent/memory"
)

// Completer is the part of the OpenAI client the runner needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ToolSet is the tool gateway seen by the runner. Call never fails; problems
// come back as {"ok":false,...} results.
type ToolSet interface {
	Schemas() []openai.Tool
	Call(ctx context.Context, name, args string) string
}

// Budget bounds the model rounds spent on one user turn.
type Budget struct {
	// MaxSteps is the number of model calls allowed per turn.
	MaxSteps int
	// WindDownAt is how many remaining rounds trigger a warning to the model.
	WindDownAt int
}

func DefaultBudget() Budget {
	return Budget{MaxSteps: 20, WindDownAt: 2}
}

func (b Budget) Validate() error {
	if b.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", b.MaxSteps)
	}
	if b.WindDownAt < 0 {
		return fmt.Errorf("wind-down threshold must not be negative, got %d", b.WindDownAt)
	}
	return nil
}

// Step is one model round that requested tools, together with what the tools returned.
type Step struct {
	Index     int
	Assistant openai.ChatCompletionMessage
	Calls     []memory.ToolCall
	Results   []memory.ToolResult
}

// StepFunc is called after the tools of a step ran and before the next model
// call. Returning an error stops the turn.
type StepFunc func(ctx context.Context, step Step) error

// TurnResult is what one user turn produced.
type TurnResult struct {
	// Text is the final answer. Empty when the budget ran out without one.
	Text string
	// Messages are the assistant and tool messages added during the turn.
	Messages []openai.ChatCompletionMessage
	Steps    int
	// Exhausted is set when every step requested tools.
	Exhausted bool
}

type Runner struct {
	client Completer
	tools  ToolSet
	model  string
	budget Budget
}

func NewRunner(client Completer, tools ToolSet, model string, budget Budget) (*Runner, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		client: client,
		tools:  tools,
		model:  model,
		budget: budget,
	}, nil
}

func (r *Runner) Model() string {
	return r.model
}

func (r *Runner) Budget() Budget {
	return r.budget
}

// Run drives the model until it answers without tools or the budget is spent.
// history must already end with the user's message and is not modified.
//
// On error the returned result holds the steps completed so far.
func (r *Runner) Run(ctx context.Context, history []openai.ChatCompletionMessage, onStep StepFunc) (*TurnResult, error) {
	messages := append([]openai.ChatCompletionMessage(nil), history...)
	result := &TurnResult{}
	schemas := r.tools.Schemas()

	for step := 1; step <= r.budget.MaxSteps; step++ {
		remaining := r.budget.MaxSteps - step + 1
		request := openai.ChatCompletionRequest{
			Model:    r.model,
			Messages: messages,
			Tools:    schemas,
		}
		if remaining <= r.budget.WindDownAt || remaining == 1 {
			request.Messages = append(append([]openai.ChatCompletionMessage(nil), messages...), windDownNote(remaining))
		}
		if remaining == 1 && len(schemas) > 0 {
			request.ToolChoice = "none"
		}

		logging.Debug().Int("step", step).Int("remaining", remaining).Int("messages", len(request.Messages)).Msg("calling model")
		resp, err := r.client.CreateChatCompletion(ctx, request)
		if err != nil {
			return result, fmt.Errorf("failed to call model at step %d: %w", step, err)
		}
		if len(resp.Choices) == 0 {
			return result, errors.New("no response received from model")
		}

		assistant := resp.Choices[0].Message
		if assistant.Role == "" {
			assistant.Role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, assistant)
		result.Messages = append(result.Messages, assistant)
		result.Steps = step

		if len(assistant.ToolCalls) == 0 {
			result.Text = assistant.Content
			return result, nil
		}

		current := Step{Index: step, Assistant: assistant}
		for _, toolCall := range assistant.ToolCalls {
			name, args := toolCall.Function.Name, toolCall.Function.Arguments
			output := r.tools.Call(ctx, name, args)

			toolMsg := openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    output,
				ToolCallID: toolCall.ID,
			}
			messages = append(messages, toolMsg)
			result.Messages = append(result.Messages, toolMsg)

			current.Calls = append(current.Calls, memory.ToolCall{Tool: name, Arguments: memory.RawJSON(args)})
			current.Results = append(current.Results, memory.ToolResult{Tool: name, Output: memory.RawJSON(output)})
		}

		if onStep != nil {
			if err := onStep(ctx, current); err != nil {
				return result, err
			}
		}
	}

	result.Exhausted = true
	logging.Warn().Int("max_steps", r.budget.MaxSteps).Msg("step budget exhausted")
	return result, nil
}

func windDownNote(remaining int) openai.ChatCompletionMessage {
	content := fmt.Sprintf("You have %d model rounds left for this request. Wrap up and prepare a final answer.", remaining)
	if remaining == 1 {
		content = "This is your last round for this request. Tools are no longer available: answer now with a summary of what was done and what is left."
	}
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: content,
	}
}
