package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var errNoChanges = errors.New("the new content is identical to the current file")

// EditFileArgs are the arguments of editFile.
type EditFileArgs struct {
	Path       string `json:"path"`
	NewContent string `json:"new_content"`
}

func (a *EditFileArgs) validate() error {
	return requireArg("path", a.Path)
}

// EditFile returns the editFile function. It replaces the whole content of an
// existing file, showing a unified diff in the confirmation question.
func EditFile(gate *Gate) func(context.Context, string) (string, error) {
	return func(_ context.Context, args string) (string, error) {
		var editFileArgs EditFileArgs
		if err := parseArgs(args, &editFileArgs); err != nil {
			return "", err
		}
		path := editFileArgs.Path

		var mode os.FileMode
		return gate.Run(Mutation{
			Tool:   "editFile",
			Action: fmt.Sprintf("edit %s", path),
			Prepare: func() (string, error) {
				info, err := os.Stat(path)
				if err != nil {
					return "", fmt.Errorf("file does not exist, use writeFile to create a new file: %v", err)
				}
				if info.IsDir() {
					return "", fmt.Errorf("%s is a directory", path)
				}
				mode = info.Mode().Perm()

				oldContent, err := os.ReadFile(path)
				if err != nil {
					return "", fmt.Errorf("failed to read file: %v", err)
				}
				diffText := formatUnifiedDiff(string(oldContent), editFileArgs.NewContent, path, path)
				if diffText == "" {
					return "", errNoChanges
				}
				return fmt.Sprintf("\nEdit file %s\n%s\nProceed?", path, diffText), nil
			},
			Execute: func() (string, error) {
				if err := os.WriteFile(path, []byte(editFileArgs.NewContent), mode); err != nil {
					return "", fmt.Errorf("failed to write file: %v", err)
				}
				return fmt.Sprintf("updated %s", path), nil
			},
		}), nil
	}
}

// GetEditFileTool returns the editFile definition bound to gate.
func GetEditFileTool(gate *Gate) ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: "editFile",
				Description: "Overwrites the whole content of an existing file. To avoid destroying the file always: " +
					"1. read the current content with readFile, 2. build the complete new version from it, " +
					"3. pass the complete new content here. Never send a partial edit. Requires user confirmation.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"path": {
							Type:        jsonschema.String,
							Description: "Path of the existing file",
						},
						"new_content": {
							Type:        jsonschema.String,
							Description: "Complete new content replacing the file",
						},
					},
					Required: []string{"path", "new_content"},
				},
			},
		},
		Mutating: true,
		Function: EditFile(gate),
	}
}

// formatUnifiedDiff renders a line-based unified diff, or "" when nothing changed.
func formatUnifiedDiff(oldText, newText, oldPath, newPath string) string {
	if oldText == newText {
		return ""
	}

	uri := span.URIFromPath(oldPath)
	edits := myers.ComputeEdits(uri, oldText, newText)
	if len(edits) == 0 {
		return ""
	}

	unified := gotextdiff.ToUnified(oldPath, newPath, oldText, edits)
	return fmt.Sprint(unified)
}
