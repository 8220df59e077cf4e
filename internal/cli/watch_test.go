package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForTrigger waits for one debounced run signal or fails the test.
func waitForTrigger(t *testing.T, w *ArchiveWatcher, timeout time.Duration) {
	t.Helper()
	select {
	case <-w.Runs():
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a watch trigger")
	}
}

// newTestWatcher starts a watcher over root with a short debounce.
func newTestWatcher(t *testing.T, root, outputPath string) *ArchiveWatcher {
	t.Helper()
	w, err := NewArchiveWatcher(nil, root, outputPath, 150*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Watch())
	return w
}

func TestArchiveWatcher_TriggersOnWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Calls"), 0o755))

	w := newTestWatcher(t, root, filepath.Join(t.TempDir(), "out"))

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "Calls", "Alice - Text - 2024-01-15T18_32_45Z.html"),
		[]byte("<html></html>"), 0o644))

	waitForTrigger(t, w, 5*time.Second)
}

func TestArchiveWatcher_CoalescesBursts(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, filepath.Join(t.TempDir(), "out"))

	// A burst of writes inside the debounce window yields one trigger.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(
			filepath.Join(root, "fragment.html"),
			[]byte("<html></html>"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	waitForTrigger(t, w, 5*time.Second)

	// After the batch settles no further trigger may arrive without a new
	// change.
	select {
	case <-w.Runs():
		t.Fatal("burst produced a second trigger")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestArchiveWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, filepath.Join(t.TempDir(), "out"))

	newDir := filepath.Join(root, "Calls")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	waitForTrigger(t, w, 5*time.Second)

	// The fresh directory must itself be watched.
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "late.html"), []byte("x"), 0o644))
	waitForTrigger(t, w, 5*time.Second)
}

func TestArchiveWatcher_IgnoresOutputTree(t *testing.T) {
	root := t.TempDir()
	outputPath := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(outputPath, 0o755))

	w := newTestWatcher(t, root, outputPath)

	// Writes into the output tree must never retrigger a run.
	require.NoError(t, os.WriteFile(filepath.Join(outputPath, "Alice.html"), []byte("x"), 0o644))

	select {
	case <-w.Runs():
		t.Fatal("output tree write triggered a run")
	case <-time.After(700 * time.Millisecond):
	}
}

func TestArchiveWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, filepath.Join(t.TempDir(), "out"))

	require.NoError(t, os.WriteFile(filepath.Join(root, ".swapfile"), []byte("x"), 0o644))

	select {
	case <-w.Runs():
		t.Fatal("hidden file write triggered a run")
	case <-time.After(700 * time.Millisecond):
	}
}

func TestArchiveWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewArchiveWatcher(nil, t.TempDir(), "", 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch())

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
