package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ToolDefinition is a tool the model can call.
type ToolDefinition struct {
	Schema openai.Tool
	// Mutating tools change the file system and go through the confirmation gate.
	Mutating bool
	// Function receives the raw JSON arguments sent by the model and returns a
	// JSON result. A returned error means the arguments could not be used at all.
	Function func(ctx context.Context, args string) (string, error)
}

// Name returns the function name the model uses to call the tool.
func (d ToolDefinition) Name() string {
	if d.Schema.Function == nil {
		return ""
	}
	return d.Schema.Function.Name
}

// ErrorResult is the result every tool returns on failure.
type ErrorResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func errorJSON(message string) string {
	resultJSON, _ := json.Marshal(ErrorResult{OK: false, Error: message})
	return string(resultJSON)
}

func resultJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to encode result: %v", err))
	}
	return string(b)
}

type arguments interface {
	validate() error
}

// parseArgs decodes the model's JSON arguments into v and validates them.
func parseArgs(args string, v arguments) error {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("failed to parse arguments: %v", err)
	}
	return v.validate()
}

func requireArg(name, value string) error {
	if value == "" {
		return fmt.Errorf("missing required argument %q", name)
	}
	return nil
}
