package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/catalog/internal/catalog/service"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	// Arrange
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Movies"), 0o755))

	var mu sync.Mutex
	triggered := map[string]int{}
	fired := make(chan struct{}, 10)
	w, err := service.NewWatcher(100*time.Millisecond, func(_ context.Context, sourceID string) {
		mu.Lock()
		triggered[sourceID]++
		mu.Unlock()
		fired <- struct{}{}
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, w.Watch("disk", root))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Act
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Movies", name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "Movies", "notes.txt"), []byte("x"), 0o644))

	// Assert
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never triggered")
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, triggered["disk"])
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	fired := make(chan string, 10)
	w, err := service.NewWatcher(50*time.Millisecond, func(_ context.Context, sourceID string) {
		fired <- sourceID
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, w.Watch("disk", root))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	dir := filepath.Join(root, "Shows", "Season 1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation never triggered")
	}

	// Give the watcher time to register the new directories.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Show.S01E01.mkv"), []byte("x"), 0o644))
	select {
	case id := <-fired:
		assert.Equal(t, "disk", id)
	case <-time.After(5 * time.Second):
		t.Fatal("file in new directory never triggered")
	}

	cancel()
	require.NoError(t, <-done)
}
