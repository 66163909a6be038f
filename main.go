package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/LTKSK/go-coding-agent/agent"
	"github.com/LTKSK/go-coding-agent/config"
	"github.com/LTKSK/go-coding-agent/interaction"
	"github.com/LTKSK/go-coding-agent/logging"
	"github.com/LTKSK/go-coding-agent/memory"
	"github.com/LTKSK/go-coding-agent/tools"
)

const listLimit = 20

var (
	configPath      string
	dbPath          string
	model           string
	maxSteps        int
	logLevel        string
	sessionID       string
	listSessions    bool
	recentSessions  int
	deleteSessionID string

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "coding-agent",
	Short: "An autonomous coding assistant for the current project",
	Long: `coding-agent plans and carries out coding requests in the current directory
using file-system tools. Every write, edit and copy is confirmed with you first.

Conversations are stored per project and resumed on the next start.
Type 'new-session' to start over and 'exit' to leave.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/coding-agent/config.yaml)")
	flags.StringVar(&dbPath, "db", "", "Session database path")
	flags.StringVar(&model, "model", "", "Model name")
	flags.IntVar(&maxSteps, "max-steps", 0, "Maximum model rounds per request")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&sessionID, "session", "", "Resume an existing session by ID")
	flags.BoolVar(&listSessions, "list-sessions", false, "List recent sessions for the current project")
	flags.IntVar(&recentSessions, "recent", 0, "List the N most recent sessions across all projects")
	flags.StringVar(&deleteSessionID, "delete-session", "", "Delete a session and its messages")

	rootCmd.MarkFlagsMutuallyExclusive("session", "list-sessions", "recent", "delete-session")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logging.Init(logConfig)

	manager, err := memory.NewManager(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize memory manager: %w", err)
	}
	defer manager.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case deleteSessionID != "":
		return deleteSession(ctx, out, manager, deleteSessionID)
	case listSessions:
		sessions, err := manager.GetCurrentProjectSessions(ctx, listLimit)
		if err != nil {
			return fmt.Errorf("failed to get sessions: %w", err)
		}
		renderSessions(out, sessions, false)
		return nil
	case cmd.Flags().Changed("recent"):
		if recentSessions < 1 {
			return errors.New("--recent must be at least 1")
		}
		sessions, err := manager.GetRecentSessions(ctx, recentSessions)
		if err != nil {
			return fmt.Errorf("failed to get sessions: %w", err)
		}
		renderSessions(out, sessions, true)
		return nil
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("%s is not set; export %s=your_api_key_here or put it in .env", config.EnvAPIKey, config.EnvAPIKey)
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	console := interaction.NewConsole(cmd.InOrStdin(), out)
	registry := tools.NewRegistry(console)

	runner, err := agent.NewRunner(client, registry, cfg.Model, agent.Budget{
		MaxSteps:   cfg.MaxSteps,
		WindDownAt: cfg.WindDownAt,
	})
	if err != nil {
		return err
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	driver := agent.NewDriver(manager, runner, console, projectPath)
	if sessionID != "" {
		err = driver.Resume(ctx, sessionID)
	} else {
		err = driver.Start(ctx)
	}
	if err != nil {
		return err
	}

	console.Printf("coding-agent %s (model %s, %d steps per request)\n", version, cfg.Model, cfg.MaxSteps)
	console.Printf("Available tools: %s\n", strings.Join(registry.Names(), ", "))
	console.Printf("Type 'exit' to quit or 'new-session' to start a new session\n---\n")

	return driver.Run(ctx)
}

func deleteSession(ctx context.Context, out io.Writer, manager *memory.Manager, id string) error {
	if _, err := manager.RestoreSession(ctx, id); err != nil {
		return err
	}
	if err := manager.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted session %s\n", id)
	return nil
}
