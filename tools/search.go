package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const maxSearchLine = 1024 * 1024

// SearchInDirectoryArgs are the arguments of searchInDirectory.
type SearchInDirectoryArgs struct {
	Path         string   `json:"path"`
	Keyword      string   `json:"keyword"`
	ExcludePaths []string `json:"excludePaths,omitempty"`
}

func (a *SearchInDirectoryArgs) validate() error {
	if err := requireArg("path", a.Path); err != nil {
		return err
	}
	return requireArg("keyword", a.Keyword)
}

// SearchInDirectoryResult is the result of searchInDirectory.
type SearchInDirectoryResult struct {
	OK    bool     `json:"ok"`
	Files []string `json:"files"`
}

// SearchInDirectory walks a directory and returns the files containing keyword.
func SearchInDirectory(ctx context.Context, args string) (string, error) {
	var searchArgs SearchInDirectoryArgs
	if err := parseArgs(args, &searchArgs); err != nil {
		return "", err
	}
	for _, pattern := range searchArgs.ExcludePaths {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return errorJSON(fmt.Sprintf("invalid exclude pattern: %s", pattern)), nil
		}
	}

	root := filepath.Clean(searchArgs.Path)
	files := []string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != root && excluded(root, path, searchArgs.ExcludePaths) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		// Unreadable files are skipped rather than aborting the walk.
		if containsKeyword(path, searchArgs.Keyword) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to search directory: %v", err)), nil
	}
	return resultJSON(SearchInDirectoryResult{OK: true, Files: files}), nil
}

// excluded matches a path against prefixes and doublestar globs. Globs are
// tried against the walked path and the path relative to root.
func excluded(root, path string, patterns []string) bool {
	slashPath := filepath.ToSlash(path)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	slashRel := filepath.ToSlash(rel)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(path, pattern) {
			return true
		}
		p := filepath.ToSlash(pattern)
		if ok, _ := doublestar.Match(p, slashPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, slashRel); ok {
			return true
		}
	}
	return false
}

func containsKeyword(path, keyword string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxSearchLine)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), keyword) {
			return true
		}
	}
	return false
}

// GetSearchInDirectoryTool returns the searchInDirectory definition.
func GetSearchInDirectoryTool() ToolDefinition {
	return ToolDefinition{
		Schema: openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "searchInDirectory",
				Description: "Recursively searches a directory and returns the files that contain the keyword.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"path": {
							Type:        jsonschema.String,
							Description: "Directory to search",
						},
						"keyword": {
							Type:        jsonschema.String,
							Description: "Text to look for",
						},
						"excludePaths": {
							Type:        jsonschema.Array,
							Description: "Paths to skip. Each entry is a path prefix or a glob such as **/node_modules/**.",
							Items: &jsonschema.Definition{
								Type: jsonschema.String,
							},
						},
					},
					Required: []string{"path", "keyword"},
				},
			},
		},
		Function: SearchInDirectory,
	}
}
