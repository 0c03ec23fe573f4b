package fixture

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DryRunSpawner logs the fixtures it would start instead of starting them.
// The returned handles stay "running" until terminated or killed.
type DryRunSpawner struct {
	Logger *slog.Logger
}

// Spawn logs spec and returns a handle with pid 0.
func (s *DryRunSpawner) Spawn(ctx context.Context, spec Spec) (Handle, error) {
	if spec.Path == "" {
		return nil, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("dry run: not starting fixture",
		"name", spec.Name,
		"command", strings.Join(spec.Argv(), " "),
		"dir", spec.Dir)
	return &dryRunHandle{argv: spec.Argv(), done: make(chan struct{})}, nil
}

type dryRunHandle struct {
	argv []string
	once sync.Once
	done chan struct{}
}

func (h *dryRunHandle) PID() int { return 0 }

func (h *dryRunHandle) Command() []string { return append([]string(nil), h.argv...) }

func (h *dryRunHandle) Done() <-chan struct{} { return h.done }

func (h *dryRunHandle) Err() error { return nil }

func (h *dryRunHandle) Terminate() error { return h.stop() }

func (h *dryRunHandle) Kill() error { return h.stop() }

func (h *dryRunHandle) stop() error {
	stopped := false
	h.once.Do(func() {
		close(h.done)
		stopped = true
	})
	if !stopped {
		return os.ErrProcessDone
	}
	return nil
}

var _ Spawner = (*DryRunSpawner)(nil)
