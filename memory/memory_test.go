package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testClock hands out strictly increasing times, one second apart.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "memory.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func strPtr(s string) *string {
	return &s
}
