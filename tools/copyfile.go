package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// CopyFileArgs are the arguments of copyFile.
type CopyFileArgs struct {
	SourcePath      string `json:"sourcePath"`
	DestinationPath string `json:"destinationPath"`
}

func (a *CopyFileArgs) validate() error {
	if err := requireArg("sourcePath", a.SourcePath); err != nil {
		return err
	}
	return requireArg("destinationPath", a.DestinationPath)
}

// CopyFile returns the copyFile function. The source must be an existing
// regular file and the destination must not exist.
func CopyFile(gate *Gate) func(context.Context, string) (string, error) {
	return func(_ context.Context, args string) (string, error) {
		var copyArgs CopyFileArgs
		if err := parseArgs(args, &copyArgs); err != nil {
			return "", err
		}
		src, dst := copyArgs.SourcePath, copyArgs.DestinationPath

		var mode os.FileMode
		return gate.Run(Mutation{
			Tool:   "copyFile",
			Action: fmt.Sprintf("copy %s to %s", src, dst),
			Prepare: func() (string, error) {
				info, err := os.Stat(src)
				if err != nil {
					return "", fmt.Errorf("source file does not exist: %v", err)
				}
				if !info.Mode().IsRegular() {
					return "", fmt.Errorf("source is not a regular file: %s", src)
				}
				mode = info.Mode().Perm()

				if _, err := os.Stat(dst); err == nil {
					return "", fmt.Errorf("destination already exists: %s", dst)
				}
				return fmt.Sprintf("\nCopy %s to %s\nProceed?", src, dst), nil
			},
			Execute: func() (string, error) {
				n, err := copyRegularFile(src, dst, mode)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("copied %s to %s (%d bytes)", src, dst, n), nil
			},
		}), nil
	}
}

func copyRegularFile(src, dst string, mode os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %v", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent directories: %v", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %v", err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("failed to copy: %v", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close destination: %v", err)
	}
	return n, nil
}

// GetCopyFileTool returns the copyFile definition bound to gate.
func GetCopyFileTool(gate *Gate) ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "copyFile",
				Description: "Copies an existing file to a new path. Fails if the destination already exists. Requires user confirmation.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"sourcePath": {
							Type:        jsonschema.String,
							Description: "Path of the file to copy",
						},
						"destinationPath": {
							Type:        jsonschema.String,
							Description: "Path of the new copy",
						},
					},
					Required: []string{"sourcePath", "destinationPath"},
				},
			},
		},
		Mutating: true,
		Function: CopyFile(gate),
	}
}
