package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LTKSK/go-coding-agent/memory"
)

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	manager, err := memory.NewManager(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	session, err := manager.StartSession(ctx, "/work/project", "test-model")
	require.NoError(t, err)
	_, err = manager.SaveMessage(ctx, session, memory.RoleUser, "hello", nil, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, deleteSession(ctx, &out, manager, session.ID))
	assert.Contains(t, out.String(), "Deleted session "+session.ID)

	messages, err := manager.GetSessionMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	err = deleteSession(ctx, &out, manager, session.ID)
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
}
