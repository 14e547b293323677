package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const delay = 30 * time.Millisecond

func newWatcher(t *testing.T, root string, calls *atomic.Int32, paths chan string) *Watcher {
	t.Helper()
	w, err := New(root, Options{
		Logger: zaptest.NewLogger(t),
		Delay:  delay,
		OnChange: func(path string) {
			calls.Add(1)
			select {
			case paths <- path:
			default:
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestChangeInSubdirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "model")
	require.NoError(t, os.Mkdir(sub, 0o755))

	var calls atomic.Int32
	paths := make(chan string, 4)
	newWatcher(t, root, &calls, paths)

	file := filepath.Join(sub, "model.frag")
	require.NoError(t, os.WriteFile(file, []byte("void main() {}"), 0o644))

	select {
	case p := <-paths:
		assert.Equal(t, file, p)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestBurstIsCoalesced(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	paths := make(chan string, 4)
	newWatcher(t, root, &calls, paths)

	file := filepath.Join(root, "a.vert")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(5 * delay)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	paths := make(chan string, 4)
	newWatcher(t, root, &calls, paths)

	sub := filepath.Join(root, "dirLight")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// the directory creation itself is a change
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	<-paths

	file := filepath.Join(sub, "dirLight.frag")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	select {
	case p := <-paths:
		assert.Equal(t, file, p)
	case <-time.After(2 * time.Second):
		t.Fatal("change in new directory not reported")
	}
}

func TestCloseStopsReporting(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	paths := make(chan string, 4)
	w := newWatcher(t, root, &calls, paths)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.frag"), []byte("x"), 0o644))
	time.Sleep(5 * delay)
	assert.Zero(t, calls.Load())
}

func TestMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	require.Error(t, err)
}
