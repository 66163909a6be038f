package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LTKSK/go-coding-agent/logging"
)

// Manager handles session lifecycle on top of the repository.
//
// It keeps no "current session" of its own: StartSession and RestoreSession
// return a handle which callers pass back into SaveMessage and EndSession.
// A nil or already-ended handle means "no active session".
type Manager struct {
	database   *Database
	repository *Repository
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for session ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(dbPath string, opts ...Option) (*Manager, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		database:   database,
		repository: NewRepository(database.DB()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close releases the database. Active sessions stay active so that the next
// startup can resume them.
func (m *Manager) Close() error {
	return m.database.Close()
}

// Repository exposes the underlying repository for read-side callers.
func (m *Manager) Repository() *Repository {
	return m.repository
}

// StartSession creates a new session and returns its handle.
func (m *Manager) StartSession(ctx context.Context, projectPath, modelUsed string) (*Session, error) {
	now := m.now()
	id, err := m.newSessionID(ctx, now)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:          id,
		StartedAt:   now,
		ProjectPath: projectPath,
		ModelUsed:   modelUsed,
	}
	if err := m.repository.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logging.Info().Str("session", id).Str("project", projectPath).Str("model", modelUsed).Msg("session started")
	return session, nil
}

// newSessionID derives an id from the wall clock at one-second resolution.
// Ids taken within the same second get a numeric suffix, which keeps them
// sortable by creation.
func (m *Manager) newSessionID(ctx context.Context, now time.Time) (string, error) {
	base := "session_" + now.Format("20060102_150405")
	id := base
	for n := 1; ; n++ {
		existing, err := m.repository.GetSession(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check session id: %w", err)
		}
		if existing == nil {
			return id, nil
		}
		id = fmt.Sprintf("%s_%02d", base, n)
	}
}

// RestoreSession loads an existing session. The caller asserts the id exists,
// so a missing session is reported as ErrSessionNotFound.
func (m *Manager) RestoreSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.repository.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	logging.Info().Str("session", sessionID).Msg("session restored")
	return session, nil
}

// GetActiveSession returns the unended session for projectPath, or nil.
func (m *Manager) GetActiveSession(ctx context.Context, projectPath string) (*Session, error) {
	return m.repository.GetActiveSession(ctx, projectPath)
}

// EndSession stamps the end time on session. A nil or already-ended handle is a no-op.
func (m *Manager) EndSession(ctx context.Context, session *Session) error {
	if session == nil || !session.IsActive() {
		return nil
	}

	now := m.now()
	if now.Before(session.StartedAt) {
		now = session.StartedAt
	}
	if err := m.repository.EndSession(ctx, session.ID, now); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	session.EndedAt = &now
	logging.Info().Str("session", session.ID).Dur("duration", session.Duration()).Msg("session ended")
	return nil
}

// SaveMessage appends a message to session and returns its id.
//
// Without an active session nothing is written and the returned id is 0; this
// is not an error.
func (m *Manager) SaveMessage(
	ctx context.Context,
	session *Session,
	role Role,
	content string,
	toolCalls []ToolCall,
	toolResults []ToolResult,
) (int64, error) {
	if session == nil || !session.IsActive() {
		return 0, nil
	}
	if !role.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	calls, err := EncodeToolCalls(toolCalls)
	if err != nil {
		return 0, err
	}
	results, err := EncodeToolResults(toolResults)
	if err != nil {
		return 0, err
	}

	id, err := m.repository.AddMessage(ctx, &Message{
		SessionID:   session.ID,
		Timestamp:   m.now(),
		Role:        role,
		Content:     content,
		ToolCalls:   calls,
		ToolResults: results,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save %s message: %w", role, err)
	}

	logging.Debug().Str("session", session.ID).Str("role", string(role)).Int64("id", id).Msg("message saved")
	return id, nil
}

// GetSessionsByProject returns session summaries for a project, newest first.
func (m *Manager) GetSessionsByProject(ctx context.Context, projectPath string, limit int) ([]*SessionSummary, error) {
	return m.repository.GetSessionSummaries(ctx, projectPath, limit)
}

// GetCurrentProjectSessions returns session summaries for the working directory.
func (m *Manager) GetCurrentProjectSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return m.GetSessionsByProject(ctx, currentDir, limit)
}

func (m *Manager) GetSessionMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	return m.repository.GetMessages(ctx, sessionID)
}

func (m *Manager) GetRecentSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	return m.repository.GetRecentSessions(ctx, limit)
}

// DeleteSession deletes a session and all its messages. Handles that still
// point at the deleted session must not be used for saving afterwards.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.repository.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	logging.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}
