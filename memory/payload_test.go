package memory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawJSON(t *testing.T) {
	assert.Equal(t, json.RawMessage(`{"path":"."}`), RawJSON(`{"path":"."}`))
	assert.Equal(t, json.RawMessage(`"not json {"`), RawJSON(`not json {`))
	assert.Equal(t, json.RawMessage(`""`), RawJSON(""))
}

func TestEncodeToolCalls(t *testing.T) {
	got, err := EncodeToolCalls(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = EncodeToolCalls([]ToolCall{
		{Tool: "list", Arguments: RawJSON(`{"path":"."}`)},
		{Tool: "readFile", Arguments: RawJSON(`{"path":"go.mod"}`)},
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `[{"tool":"list","arguments":{"path":"."}},{"tool":"readFile","arguments":{"path":"go.mod"}}]`, *got)
}

func TestEncodeToolCalls_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		calls []ToolCall
	}{
		{"empty tool name", []ToolCall{{Arguments: RawJSON(`{}`)}}},
		{"missing arguments", []ToolCall{{Tool: "list"}}},
		{"malformed arguments", []ToolCall{{Tool: "list", Arguments: json.RawMessage(`{"path":`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeToolCalls(tt.calls)
			assert.True(t, errors.Is(err, ErrInvalidPayload), "got %v", err)
		})
	}
}

func TestEncodeToolResults(t *testing.T) {
	got, err := EncodeToolResults([]ToolResult{{Tool: "writeFile", Output: RawJSON(`{"ok":false,"error":"denied"}`)}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `[{"tool":"writeFile","output":{"ok":false,"error":"denied"}}]`, *got)

	_, err = EncodeToolResults([]ToolResult{{Tool: "", Output: RawJSON(`{}`)}})
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestDecodePayloads(t *testing.T) {
	calls, err := DecodeToolCalls(nil)
	require.NoError(t, err)
	assert.Nil(t, calls)

	calls, err = DecodeToolCalls(strPtr(`[{"tool":"list","arguments":{"path":"."}}]`))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "list", calls[0].Tool)
	assert.JSONEq(t, `{"path":"."}`, string(calls[0].Arguments))

	_, err = DecodeToolCalls(strPtr(`{"tool":"list"}`))
	assert.True(t, errors.Is(err, ErrInvalidPayload), "an object is not a list")

	_, err = DecodeToolCalls(strPtr(`[{"tool":"list"}]`))
	assert.True(t, errors.Is(err, ErrInvalidPayload), "arguments are required")

	results, err := DecodeToolResults(strPtr(`[{"tool":"list","output":{"ok":true}}]`))
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = DecodeToolResults(strPtr(`[{"output":{"ok":true}}]`))
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}
