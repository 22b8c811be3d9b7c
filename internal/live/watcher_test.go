package live

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "inbox.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("seed"), 0o644))

	w, err := New(dbPath, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	w.Start(context.Background())
	return w, dir
}

func appendTo(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("x")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestWatcher_BurstYieldsOneSignal(t *testing.T) {
	w, dir := newTestWatcher(t)

	for i := 0; i < 5; i++ {
		appendTo(t, filepath.Join(dir, "inbox.db-wal"))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change signal")
	}

	select {
	case <-w.Changes():
		t.Fatal("burst produced more than one signal")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	w, dir := newTestWatcher(t)

	appendTo(t, filepath.Join(dir, "config.yaml"))

	select {
	case <-w.Changes():
		t.Fatal("unexpected signal for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseCancelsPending(t *testing.T) {
	w, dir := newTestWatcher(t)

	appendTo(t, filepath.Join(dir, "inbox.db"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, w.Close())

	require.Nil(t, w.WaitCmd()())
}
