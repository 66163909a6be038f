package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ListArgs are the arguments of list.
type ListArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

func (a *ListArgs) validate() error {
	return requireArg("path", a.Path)
}

// ListResult is the result of list.
type ListResult struct {
	OK    bool     `json:"ok"`
	Files []string `json:"files"`
}

// List returns the entries under a directory. Recursive listings include
// directories as well as files; the root itself is not listed.
func List(ctx context.Context, args string) (string, error) {
	var listArgs ListArgs
	if err := parseArgs(args, &listArgs); err != nil {
		return "", err
	}

	files := []string{}

	if !listArgs.Recursive {
		entries, err := os.ReadDir(listArgs.Path)
		if err != nil {
			return errorJSON(fmt.Sprintf("failed to read directory: %v", err)), nil
		}
		for _, entry := range entries {
			files = append(files, filepath.Join(listArgs.Path, entry.Name()))
		}
		return resultJSON(ListResult{OK: true, Files: files}), nil
	}

	root := filepath.Clean(listArgs.Path)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to walk directory: %v", err)), nil
	}
	return resultJSON(ListResult{OK: true, Files: files}), nil
}

// GetListTool returns the list definition.
func GetListTool() ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list",
				Description: "Lists the files and directories in a directory. With recursive set to true, lists everything below it.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"path": {
							Type:        jsonschema.String,
							Description: "Directory to list",
						},
						"recursive": {
							Type:        jsonschema.Boolean,
							Description: "Whether to list recursively (default false)",
						},
					},
					Required: []string{"path"},
				},
			},
		},
		Function: List,
	}
}
