package memory

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartSession(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 4, 5, 6, 7, 8, 0, time.Local)
	m := newTestManager(t, WithClock(func() time.Time { return fixed }))

	s, err := m.StartSession(ctx, "/p", "model-a")
	require.NoError(t, err)
	assert.Equal(t, "session_20250405_060708", s.ID)
	assert.Equal(t, "/p", s.ProjectPath)
	assert.Equal(t, "model-a", s.ModelUsed)
	assert.True(t, s.IsActive())

	active, err := m.GetActiveSession(ctx, "/p")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, s.ID, active.ID)
}

func TestManager_StartSession_SameSecondGetsSuffix(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 4, 5, 6, 7, 8, 0, time.Local)
	m := newTestManager(t, WithClock(func() time.Time { return fixed }))

	first, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)
	second, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)
	third, err := m.StartSession(ctx, "/q", "m")
	require.NoError(t, err)

	assert.Equal(t, "session_20250405_060708", first.ID)
	assert.Equal(t, "session_20250405_060708_01", second.ID)
	assert.Equal(t, "session_20250405_060708_02", third.ID)
	assert.Less(t, first.ID, second.ID)
	assert.Less(t, third.ID, "session_20250405_060709")
}

func TestManager_EndSession(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	m := newTestManager(t, WithClock(clock.Now))

	s, err := m.StartSession(ctx, "/p", "model-a")
	require.NoError(t, err)

	require.NoError(t, m.EndSession(ctx, s))
	assert.False(t, s.IsActive())
	require.NotNil(t, s.EndedAt)
	assert.False(t, s.EndedAt.Before(s.StartedAt))

	active, err := m.GetActiveSession(ctx, "/p")
	require.NoError(t, err)
	assert.Nil(t, active)

	// ending again, or ending nothing, changes nothing
	endedAt := *s.EndedAt
	require.NoError(t, m.EndSession(ctx, s))
	assert.Equal(t, endedAt, *s.EndedAt)
	require.NoError(t, m.EndSession(ctx, nil))
}

func TestManager_SaveMessage_WithoutSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	id, err := m.SaveMessage(ctx, nil, RoleUser, "hi", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, id)

	s, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)
	require.NoError(t, m.EndSession(ctx, s))

	id, err = m.SaveMessage(ctx, s, RoleUser, "after end", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, id)

	var count int
	require.NoError(t, m.database.DB().QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count))
	assert.Zero(t, count)
}

func TestManager_SaveMessage_Payloads(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))
	s, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)

	calls := []ToolCall{{Tool: "readFile", Arguments: RawJSON(`{"path":"main.go"}`)}}
	results := []ToolResult{{Tool: "readFile", Output: RawJSON(`{"ok":true,"content":"package main"}`)}}

	id, err := m.SaveMessage(ctx, s, RoleTool, "", calls, results)
	require.NoError(t, err)
	require.Positive(t, id)

	msg, err := m.Repository().GetMessage(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, msg)

	gotCalls, err := msg.Calls()
	require.NoError(t, err)
	assert.Equal(t, calls, gotCalls)

	gotResults, err := msg.Results()
	require.NoError(t, err)
	assert.Equal(t, results, gotResults)
}

func TestManager_SaveMessage_Rejects(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))
	s, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)

	_, err = m.SaveMessage(ctx, s, Role("system"), "x", nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidRole))

	_, err = m.SaveMessage(ctx, s, RoleTool, "", []ToolCall{{Tool: "", Arguments: RawJSON(`{}`)}}, nil)
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	msgs, err := m.GetSessionMessages(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestManager_RestoreSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	s, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)

	restored, err := m.RestoreSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, restored.ID)
	assert.True(t, restored.IsActive())

	_, err = m.RestoreSession(ctx, "session_does_not_exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.Contains(t, err.Error(), "session_does_not_exist")
}

func TestManager_DeleteSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	s, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)
	for _, content := range []string{"a", "b"} {
		_, err := m.SaveMessage(ctx, s, RoleUser, content, nil, nil)
		require.NoError(t, err)
	}

	require.NoError(t, m.DeleteSession(ctx, s.ID))

	msgs, err := m.GetSessionMessages(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = m.RestoreSession(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestManager_SummaryScenario(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	s, err := m.StartSession(ctx, "/p", "model-a")
	require.NoError(t, err)
	_, err = m.SaveMessage(ctx, s, RoleUser, "hi", nil, nil)
	require.NoError(t, err)
	_, err = m.SaveMessage(ctx, s, RoleAssistant, "hello", nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.EndSession(ctx, s))

	summaries, err := m.GetSessionsByProject(ctx, "/p", 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, s.ID, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].MessageCount)
	assert.Equal(t, "hello", summaries[0].LastMessage)
	assert.NotNil(t, summaries[0].EndedAt)
}

func TestManager_TwoActiveSessions_LatestWins(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	_, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)
	later, err := m.StartSession(ctx, "/p", "m")
	require.NoError(t, err)

	active, err := m.GetActiveSession(ctx, "/p")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, later.ID, active.ID)
}

func TestManager_GetCurrentProjectSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, WithClock(newTestClock().Now))

	wd, err := os.Getwd()
	require.NoError(t, err)
	_, err = m.StartSession(ctx, wd, "m")
	require.NoError(t, err)
	_, err = m.StartSession(ctx, "/elsewhere", "m")
	require.NoError(t, err)

	sessions, err := m.GetCurrentProjectSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, wd, sessions[0].ProjectPath)

	recent, err := m.GetRecentSessions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.True(t, strings.HasPrefix(recent[0].ID, "session_"))
}

func TestSession_IsActiveMatchesEndedAt(t *testing.T) {
	now := time.Now()
	for _, s := range []*Session{
		{ID: "a", StartedAt: now},
		{ID: "b", StartedAt: now, EndedAt: &now},
	} {
		assert.Equal(t, s.EndedAt == nil, s.IsActive(), s.ID)
	}

	ended := now.Add(time.Minute)
	s := &Session{StartedAt: now, EndedAt: &ended}
	assert.Equal(t, time.Minute, s.Duration())
}
