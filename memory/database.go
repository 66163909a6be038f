package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that lexical order of stored timestamps equals
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	if dbPath != ":memory:" {
		// 存在しなかったらディレクトリを作成
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the agent loop is single-threaded and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	// connectionをテスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{db: db}

	if err := database.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) initTables() error {
	sessionsTableSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		project_path TEXT NOT NULL,
		model_used TEXT NOT NULL
	);`

	if _, err := d.db.Exec(sessionsTableSQL); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	messagesTableSQL := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT REFERENCES sessions(id),
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		role TEXT NOT NULL,
		content TEXT,
		tool_calls TEXT,
		tool_results TEXT
	);`

	if _, err := d.db.Exec(messagesTableSQL); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	indexSQL := []string{
		"CREATE INDEX IF NOT EXISTS idx_sessions_project_path ON sessions(project_path);",
		"CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);",
		"CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);",
	}

	for _, index := range indexSQL {
		if _, err := d.db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func (d *Database) DB() *sql.DB {
	return d.db
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the layout written by formatTime as well as the forms the
// driver produces when it converts DATETIME columns itself.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", s)
}
