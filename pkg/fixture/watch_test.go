package fixture

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "mock_s3_server.py")
	require.NoError(t, os.WriteFile(script, []byte("print('v1')\n"), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(script, 100*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(script, []byte("print('v2')\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes should trigger one callback")
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "mock_s3_server.py")
	require.NoError(t, os.WriteFile(script, []byte("x\n"), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(script, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("y\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "server.py"), 0, func() {}, nil)
	assert.Error(t, err)
}
