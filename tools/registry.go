package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/LTKSK/go-coding-agent/interaction"
	"github.com/LTKSK/go-coding-agent/logging"
)

// GetAvailableTools returns every tool keyed by name. Mutating tools ask
// through gate before taking effect.
func GetAvailableTools(gate *Gate) map[string]ToolDefinition {
	defs := []ToolDefinition{
		GetReadFileTool(),
		GetListTool(),
		GetSearchInDirectoryTool(),
		GetWriteFileTool(gate),
		GetEditFileTool(gate),
		GetCopyFileTool(gate),
	}
	tools := make(map[string]ToolDefinition, len(defs))
	for _, def := range defs {
		tools[def.Name()] = def
	}
	return tools
}

// Registry is the tool gateway used by the conversation loop.
type Registry struct {
	tools map[string]ToolDefinition
	names []string
}

// NewRegistry builds the registry. A nil asker is a programming error.
func NewRegistry(asker interaction.Asker) *Registry {
	tools := GetAvailableTools(NewGate(asker))
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{tools: tools, names: names}
}

// Names returns the tool names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Schemas returns the tool schemas in the order of Names.
func (r *Registry) Schemas() []openai.Tool {
	schemas := make([]openai.Tool, 0, len(r.names))
	for _, name := range r.names {
		schemas = append(schemas, r.tools[name].Schema)
	}
	return schemas
}

func (r *Registry) Get(name string) (ToolDefinition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

func (r *Registry) IsMutating(name string) bool {
	return r.tools[name].Mutating
}

// Call runs a tool and always returns a JSON result. Unknown tools, unusable
// arguments and panics are reported as {"ok":false,"error":...}.
func (r *Registry) Call(ctx context.Context, name, args string) (result string) {
	def, ok := r.tools[name]
	if !ok {
		logging.Warn().Str("tool", name).Msg("model requested an unknown tool")
		return errorJSON(fmt.Sprintf("unknown tool: %s", name))
	}

	defer func() {
		if p := recover(); p != nil {
			logging.Error().Str("tool", name).Interface("panic", p).Msg("tool panicked")
			result = errorJSON(fmt.Sprintf("tool %s failed: %v", name, p))
		}
	}()

	logging.Debug().Str("tool", name).Str("args", args).Msg("calling tool")
	out, err := def.Function(ctx, args)
	if err != nil {
		logging.Debug().Str("tool", name).Err(err).Msg("tool rejected its arguments")
		return errorJSON(err.Error())
	}
	return out
}
