package portfolio

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	w, err := NewWatcher(paths, func() { calls.Add(1) }, 30*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return &calls
}

func TestWatcher_ReportsChangesToWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	projects := filepath.Join(dir, "projects.json")
	require.NoError(t, os.WriteFile(projects, []byte(`[]`), 0644))

	calls := startWatcher(t, []string{projects})

	require.NoError(t, os.WriteFile(projects, []byte(`[{"name":"A"}]`), 0644))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	projects := filepath.Join(dir, "projects.json")
	require.NoError(t, os.WriteFile(projects, []byte(`[]`), 0644))

	calls := startWatcher(t, []string{projects})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(projects, []byte(`[]`), 0644))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	projects := filepath.Join(dir, "projects.json")
	require.NoError(t, os.WriteFile(projects, []byte(`[]`), 0644))

	calls := startWatcher(t, []string{projects})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing", "projects.json")}, func() {}, 0, nil)
	assert.Error(t, err)
}
