package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWatchable(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"python file", "app/streamlit_app.py", true},
		{"pages file", "app/pages/overview.py", true},
		{"other extension", "app/notes.txt", false},
		{"pycache is skipped", "app/__pycache__/cached.py", false},
		{"venv is skipped", "app/venv/lib/thing.py", false},
		{"git internals skipped", filepath.Join("app", ".git", "hook.py"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, watchable(tt.path, "*.py"))
		})
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppDir = t.TempDir()
	w := NewWatcher(cfg, ModeStaged, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestIsWatchedSubdir(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWatcher(cfg, ModeStaged, zap.NewNop())

	assert.True(t, w.isWatchedSubdir("app/pages"))
	assert.False(t, w.isWatchedSubdir("app/other"))
	assert.False(t, w.isWatchedSubdir("app/__pycache__"))
}
