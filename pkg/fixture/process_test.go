//go:build unix

package fixture

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSpawnerEmptyPath(t *testing.T) {
	_, err := NewProcessSpawner().Spawn(context.Background(), Spec{})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestProcessSpawnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessSpawner().Spawn(ctx, helperSpec("sleep"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessSpawnerMissingBinary(t *testing.T) {
	_, err := NewProcessSpawner().Spawn(context.Background(), Spec{Path: "/nonexistent/mock_s3_server"})
	assert.Error(t, err)
}

func TestProcessExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process test in short mode")
	}
	h, err := NewProcessSpawner().Spawn(context.Background(), helperSpec("exit", "7"))
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("helper did not exit")
	}
	assert.Equal(t, 7, exitCode(h.Err()))
	assert.True(t, IsDone(h.Terminate()))
	assert.True(t, IsDone(h.Kill()))
}

// The spawned process is terminated when the owning scope closes.
func TestSupervisorTerminatesRealProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process test in short mode")
	}
	s := NewSupervisor(SupervisorConfig{Grace: 5 * time.Second})

	h, err := NewProcessSpawner().Spawn(context.Background(), helperSpec("sleep"))
	require.NoError(t, err)
	require.NoError(t, s.Track("helper", h))
	assert.Greater(t, h.PID(), 0)

	start := time.Now()
	require.NoError(t, s.Close(context.Background()))

	select {
	case <-h.Done():
	default:
		t.Fatal("process still running after Close")
	}
	assert.Less(t, time.Since(start), 5*time.Second, "SIGTERM should stop the helper without escalation")
}

func TestSupervisorKillsStubbornProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process test in short mode")
	}
	s := NewSupervisor(SupervisorConfig{Grace: 300 * time.Millisecond})

	h, err := NewProcessSpawner().Spawn(context.Background(), helperSpec("ignore-term"))
	require.NoError(t, err)
	require.NoError(t, s.Track("helper", h))

	// Give the helper time to install its signal handler.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, s.Close(context.Background()))
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stubborn process was not killed")
	}
}

func TestWaitReadyRealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process test in short mode")
	}
	addr := freeAddr(t)

	h, err := NewProcessSpawner().Spawn(context.Background(), helperSpec("serve", addr))
	require.NoError(t, err)
	s := NewSupervisor(SupervisorConfig{})
	require.NoError(t, s.Track("helper", h))
	defer s.Close(context.Background())

	require.NoError(t, WaitReady(context.Background(), h, addr, 10*time.Second))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}
