package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// WriteFileArgs are the arguments of writeFile.
type WriteFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (a *WriteFileArgs) validate() error {
	return requireArg("path", a.Path)
}

// WriteFile returns the writeFile function. It only creates new files;
// existing files are refused before anything is asked.
func WriteFile(gate *Gate) func(context.Context, string) (string, error) {
	return func(_ context.Context, args string) (string, error) {
		var writeFileArgs WriteFileArgs
		if err := parseArgs(args, &writeFileArgs); err != nil {
			return "", err
		}
		path := writeFileArgs.Path

		return gate.Run(Mutation{
			Tool:   "writeFile",
			Action: fmt.Sprintf("create %s", path),
			Prepare: func() (string, error) {
				if _, err := os.Stat(path); err == nil {
					return "", fmt.Errorf("file already exists, use editFile to change an existing file: %s", path)
				}
				return fmt.Sprintf("\nCreate new file %s\n--- content ---\n%s\n\nProceed?", path, writeFileArgs.Content), nil
			},
			Execute: func() (string, error) {
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return "", fmt.Errorf("failed to create parent directories: %v", err)
				}
				// O_EXCL keeps a file created after the prompt from being clobbered.
				file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
				if err != nil {
					return "", fmt.Errorf("failed to create file: %v", err)
				}
				defer file.Close()

				if _, err := file.WriteString(writeFileArgs.Content); err != nil {
					return "", fmt.Errorf("failed to write file: %v", err)
				}
				return fmt.Sprintf("created %s (%d bytes)", path, len(writeFileArgs.Content)), nil
			},
		}), nil
	}
}

// GetWriteFileTool returns the writeFile definition bound to gate.
func GetWriteFileTool(gate *Gate) ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "writeFile",
				Description: "Creates a new file at the given path with the given content. Fails if the file already exists; use editFile for existing files. Requires user confirmation.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"path": {
							Type:        jsonschema.String,
							Description: "Full path of the file to create",
						},
						"content": {
							Type:        jsonschema.String,
							Description: "Content to write",
						},
					},
					Required: []string{"path", "content"},
				},
			},
		},
		Mutating: true,
		Function: WriteFile(gate),
	}
}
