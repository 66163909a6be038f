package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the output a tool returned for one call.
type ToolResult struct {
	Tool   string          `json:"tool"`
	Output json.RawMessage `json:"output"`
}

// RawJSON converts text that is supposed to be JSON into a RawMessage.
// Text that is not valid JSON is kept as a JSON string so that it can still be
// stored inside a payload.
func RawJSON(s string) json.RawMessage {
	if s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}

func validateEntry(i int, tool string, body json.RawMessage, field string) error {
	if tool == "" {
		return fmt.Errorf("%w: entry %d has an empty tool name", ErrInvalidPayload, i)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: entry %d (%s) has no %s", ErrInvalidPayload, i, tool, field)
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: entry %d (%s) has malformed %s", ErrInvalidPayload, i, tool, field)
	}
	return nil
}

// EncodeToolCalls validates calls and serializes them into one JSON array.
// An empty list encodes to nil (stored as NULL).
func EncodeToolCalls(calls []ToolCall) (*string, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	for i, c := range calls {
		if err := validateEntry(i, c.Tool, c.Arguments, "arguments"); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	s := string(b)
	return &s, nil
}

// EncodeToolResults validates results and serializes them into one JSON array.
// An empty list encodes to nil (stored as NULL).
func EncodeToolResults(results []ToolResult) (*string, error) {
	if len(results) == 0 {
		return nil, nil
	}
	for i, r := range results {
		if err := validateEntry(i, r.Tool, r.Output, "output"); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	s := string(b)
	return &s, nil
}

// DecodeToolCalls parses a stored tool-call payload and validates every entry.
func DecodeToolCalls(payload *string) ([]ToolCall, error) {
	if payload == nil {
		return nil, nil
	}
	var calls []ToolCall
	if err := json.Unmarshal([]byte(*payload), &calls); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	for i, c := range calls {
		if err := validateEntry(i, c.Tool, c.Arguments, "arguments"); err != nil {
			return nil, err
		}
	}
	return calls, nil
}

// DecodeToolResults parses a stored tool-result payload and validates every entry.
func DecodeToolResults(payload *string) ([]ToolResult, error) {
	if payload == nil {
		return nil, nil
	}
	var results []ToolResult
	if err := json.Unmarshal([]byte(*payload), &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	for i, r := range results {
		if err := validateEntry(i, r.Tool, r.Output, "output"); err != nil {
			return nil, err
		}
	}
	return results, nil
}
