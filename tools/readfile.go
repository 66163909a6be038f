package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ReadFileArgs are the arguments of readFile.
type ReadFileArgs struct {
	Path string `json:"path"`
}

func (a *ReadFileArgs) validate() error {
	return requireArg("path", a.Path)
}

// ReadFileResult is the result of readFile.
type ReadFileResult struct {
	OK      bool   `json:"ok"`
	Content string `json:"content"`
}

// ReadFile returns the content of the file at path.
func ReadFile(_ context.Context, args string) (string, error) {
	var readFileArgs ReadFileArgs
	if err := parseArgs(args, &readFileArgs); err != nil {
		return "", err
	}

	info, err := os.Stat(readFileArgs.Path)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to open file: %v", err)), nil
	}
	if info.IsDir() {
		return errorJSON(fmt.Sprintf("%s is a directory, use list instead", readFileArgs.Path)), nil
	}

	content, err := os.ReadFile(readFileArgs.Path)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to read file: %v", err)), nil
	}
	return resultJSON(ReadFileResult{OK: true, Content: string(content)}), nil
}

// GetReadFileTool returns the readFile definition.
func GetReadFileTool() ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "readFile",
				Description: "Reads the file at the given path and returns its full content.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"path": {
							Type:        jsonschema.String,
							Description: "Path of the file to read",
						},
					},
					Required: []string{"path"},
				},
			},
		},
		Function: ReadFile,
	}
}
