package memory

import (
	"context"
	"database/sql"
	"time"
)

// Repository handles database operations for sessions and messages.
// Every driver failure is returned as a *StorageError; nothing is retried.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ========== Session Operations ==========

const sessionColumns = `id, started_at, ended_at, project_path, model_used`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s         Session
		startedAt string
		endedAt   sql.NullString
	)
	if err := row.Scan(&s.ID, &startedAt, &endedAt, &s.ProjectPath, &s.ModelUsed); err != nil {
		return nil, err
	}
	var err error
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, err
		}
		s.EndedAt = &t
	}
	return &s, nil
}

func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	var endedAt any
	if session.EndedAt != nil {
		endedAt = formatTime(*session.EndedAt)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, ended_at, project_path, model_used)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID, formatTime(session.StartedAt), endedAt, session.ProjectPath, session.ModelUsed,
	)
	return storageErr("insert session", err)
}

// GetSession returns nil without error when no session has the given id.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query session", err)
	}
	return s, nil
}

func (r *Repository) GetSessionsByProjectPath(ctx context.Context, projectPath string) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE project_path = ?
		ORDER BY started_at DESC, id DESC`, projectPath)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, storageErr("scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}
	return sessions, nil
}

// GetActiveSession returns the most recently started unended session for
// projectPath, or nil when there is none.
func (r *Repository) GetActiveSession(ctx context.Context, projectPath string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE project_path = ? AND ended_at IS NULL
		ORDER BY started_at DESC, id DESC
		LIMIT 1`, projectPath)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query active session", err)
	}
	return s, nil
}

func (r *Repository) EndSession(ctx context.Context, id string, endedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ?`, formatTime(endedAt), id)
	return storageErr("end session", err)
}

const summarySelect = `
	SELECT
		s.id,
		s.started_at,
		s.ended_at,
		s.project_path,
		s.model_used,
		COUNT(m.id) AS message_count,
		COALESCE(
			(SELECT content FROM messages WHERE session_id = s.id ORDER BY timestamp DESC, id DESC LIMIT 1),
			''
		) AS last_message
	FROM sessions s
	LEFT JOIN messages m ON s.id = m.session_id`

func (r *Repository) querySummaries(ctx context.Context, query string, args ...any) ([]*SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query session summaries", err)
	}
	defer rows.Close()

	var summaries []*SessionSummary
	for rows.Next() {
		var (
			s         SessionSummary
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&s.ID, &startedAt, &endedAt, &s.ProjectPath, &s.ModelUsed, &s.MessageCount, &s.LastMessage); err != nil {
			return nil, storageErr("scan session summary", err)
		}
		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, storageErr("scan session summary", err)
		}
		if endedAt.Valid {
			t, err := parseTime(endedAt.String)
			if err != nil {
				return nil, storageErr("scan session summary", err)
			}
			s.EndedAt = &t
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate session summaries", err)
	}
	return summaries, nil
}

// GetSessionSummaries lists summaries for one project, newest first.
// A limit of zero or less means no cap.
func (r *Repository) GetSessionSummaries(ctx context.Context, projectPath string, limit int) ([]*SessionSummary, error) {
	query := summarySelect + `
	WHERE s.project_path = ?
	GROUP BY s.id
	ORDER BY s.started_at DESC, s.id DESC`
	if limit > 0 {
		return r.querySummaries(ctx, query+` LIMIT ?`, projectPath, limit)
	}
	return r.querySummaries(ctx, query, projectPath)
}

// GetRecentSessions lists summaries across all projects, newest first.
func (r *Repository) GetRecentSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	return r.querySummaries(ctx, summarySelect+`
	GROUP BY s.id
	ORDER BY s.started_at DESC, s.id DESC
	LIMIT ?`, limit)
}

// ========== Message Operations ==========

const messageColumns = `id, session_id, timestamp, role, content, tool_calls, tool_results`

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m           Message
		timestamp   string
		role        string
		content     sql.NullString
		toolCalls   sql.NullString
		toolResults sql.NullString
	)
	if err := row.Scan(&m.ID, &m.SessionID, &timestamp, &role, &content, &toolCalls, &toolResults); err != nil {
		return nil, err
	}
	var err error
	if m.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, err
	}
	if m.Role, err = parseRole(role); err != nil {
		return nil, err
	}
	m.Content = content.String
	if toolCalls.Valid {
		m.ToolCalls = &toolCalls.String
	}
	if toolResults.Valid {
		m.ToolResults = &toolResults.String
	}
	return &m, nil
}

// AddMessage inserts message and returns the id assigned by storage.
func (r *Repository) AddMessage(ctx context.Context, message *Message) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, timestamp, role, content, tool_calls, tool_results)
		VALUES (?, ?, ?, ?, ?, ?)`,
		message.SessionID,
		formatTime(message.Timestamp),
		string(message.Role),
		message.Content,
		nullable(message.ToolCalls),
		nullable(message.ToolResults),
	)
	if err != nil {
		return 0, storageErr("insert message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert message", err)
	}
	return id, nil
}

// GetMessages returns the messages of a session in ascending timestamp order.
func (r *Repository) GetMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE session_id = ?
		ORDER BY timestamp ASC, id ASC`, sessionID)
	if err != nil {
		return nil, storageErr("query messages", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, storageErr("scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate messages", err)
	}
	return messages, nil
}

// GetMessage returns nil without error when no message has the given id.
func (r *Repository) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query message", err)
	}
	return m, nil
}

func (r *Repository) DeleteMessages(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	return storageErr("delete messages", err)
}

// DeleteSession deletes a session and all its messages.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	// messages が sessions を参照しているので先に消す
	if err := r.DeleteMessages(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return storageErr("delete session", err)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
