package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fboranek/mocksetup/pkg/log"
)

// DefaultGrace is how long Close waits after SIGTERM before killing.
const DefaultGrace = 5 * time.Second

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Grace is the time between terminate and kill. Zero means DefaultGrace.
	Grace time.Duration

	// RunID tags emitted events.
	RunID string

	// Events receives spawn/exit/terminate events.
	Events log.Logger

	// Logger is the optional logger for operational output.
	Logger *slog.Logger
}

// Supervisor owns fixture processes for the duration of a scope.
// It is safe for concurrent use.
type Supervisor struct {
	grace  time.Duration
	runID  string
	events log.Logger
	logger *slog.Logger

	mu      sync.Mutex
	tracked []*tracked
	closing bool
	closed  chan struct{}
}

type tracked struct {
	name     string
	h        Handle
	released bool
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		grace:  cfg.Grace,
		runID:  cfg.RunID,
		events: log.OrNoop(cfg.Events),
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Track places h under supervision. If the supervisor is already closed
// the process is terminated immediately and ErrSupervisorClosed returned.
func (s *Supervisor) Track(name string, h Handle) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.shutdown(name, h)
		return ErrSupervisorClosed
	}
	t := &tracked{name: name, h: h}
	s.tracked = append(s.tracked, t)
	s.mu.Unlock()

	s.logger.Info("fixture started", "name", name, "pid", h.PID())
	go s.watch(t)
	return nil
}

// Release removes h from supervision without stopping it.
func (s *Supervisor) Release(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = slices.DeleteFunc(s.tracked, func(t *tracked) bool {
		if t.h == h {
			t.released = true
			return true
		}
		return false
	})
}

// Len returns the number of tracked processes that have not exited.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tracked {
		select {
		case <-t.h.Done():
		default:
			n++
		}
	}
	return n
}

// Handles returns the tracked handles in start order.
func (s *Supervisor) Handles() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	hs := make([]Handle, len(s.tracked))
	for i, t := range s.tracked {
		hs[i] = t.h
	}
	return hs
}

// Closed is closed once Close has finished.
func (s *Supervisor) Closed() <-chan struct{} {
	return s.closed
}

// watch reports a process that exits while it is still supervised.
// Exits are logged only; a crashed fixture does not fail the build step.
func (s *Supervisor) watch(t *tracked) {
	<-t.h.Done()

	s.mu.Lock()
	expected := s.closing || t.released
	s.mu.Unlock()

	err := t.h.Err()
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Action:    t.name,
		Kind:      log.KindExit,
		PID:       t.h.PID(),
		ExitCode:  log.IntPtr(exitCode(err)),
		Error:     errString(err),
	})
	if expected {
		s.logger.Debug("fixture exited", "name", t.name, "pid", t.h.PID())
		return
	}
	s.logger.Warn("fixture exited unexpectedly", "name", t.name, "pid", t.h.PID(), "error", err)
}

// Close terminates every tracked process, newest first, waits up to the
// grace period for them to exit and kills the rest. A cancelled ctx
// shortens the wait. Close is idempotent.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		<-s.closed
		return nil
	}
	s.closing = true
	live := slices.Clone(s.tracked)
	s.mu.Unlock()
	defer close(s.closed)

	slices.Reverse(live)

	var errs []error
	for _, t := range live {
		if err := s.terminate(t.name, t.h); err != nil {
			errs = append(errs, err)
		}
	}

	deadline := time.NewTimer(s.grace)
	defer deadline.Stop()

	escalate := false
	for _, t := range live {
		if !escalate {
			select {
			case <-t.h.Done():
				continue
			case <-deadline.C:
				escalate = true
			case <-ctx.Done():
				escalate = true
			}
		}
		select {
		case <-t.h.Done():
			continue
		default:
		}
		s.logger.Warn("fixture ignored terminate, killing", "name", t.name, "pid", t.h.PID())
		if err := t.h.Kill(); err != nil && !IsDone(err) {
			errs = append(errs, fmt.Errorf("kill %s (pid %d): %w", t.name, t.h.PID(), err))
		}
	}

	return errors.Join(errs...)
}

// shutdown terminates a single handle outside of Close, escalating after grace.
func (s *Supervisor) shutdown(name string, h Handle) {
	_ = s.terminate(name, h)
	select {
	case <-h.Done():
	case <-time.After(s.grace):
		_ = h.Kill()
	}
}

// Stop terminates h, waits up to the grace period and kills it if needed.
// The handle is released from supervision first.
func (s *Supervisor) Stop(ctx context.Context, name string, h Handle) error {
	s.Release(h)
	if err := s.terminate(name, h); err != nil {
		return err
	}
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
	case <-time.After(s.grace):
	}
	if err := h.Kill(); err != nil && !IsDone(err) {
		return err
	}
	return nil
}

func (s *Supervisor) terminate(name string, h Handle) error {
	select {
	case <-h.Done():
		return nil
	default:
	}
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     s.runID,
		Action:    name,
		Kind:      log.KindTerminate,
		PID:       h.PID(),
		Command:   h.Command(),
	})
	s.logger.Info("terminating fixture", "name", name, "pid", h.PID())
	if err := h.Terminate(); err != nil && !IsDone(err) {
		return fmt.Errorf("terminate %s (pid %d): %w", name, h.PID(), err)
	}
	return nil
}

// CloseOnSignal closes the supervisor when ctx is done or one of the
// signals arrives (SIGINT and SIGTERM when none are given). The returned
// function stops listening without closing.
func (s *Supervisor) CloseOnSignal(ctx context.Context, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	quit := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(quit)
		})
	}

	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info("received signal", "signal", sig)
		case <-ctx.Done():
		case <-quit:
			return
		case <-s.closed:
			stop()
			return
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*s.grace)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			s.logger.Error("fixture cleanup failed", "error", err)
		}
		stop()
	}()
	return stop
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee interface{ ExitCode() int }
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
