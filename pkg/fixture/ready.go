package fixture

import (
	"context"
	"fmt"
	"net"
	"time"
)

// WaitReady blocks until a TCP connection to addr succeeds, h exits, or
// timeout elapses. h may be nil when there is no process to watch.
//
// The mock server gives no readiness signal of its own, so a successful
// connect is the probe: it returns as soon as the listener is up instead of
// sleeping a fixed duration.
func WaitReady(ctx context.Context, h Handle, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var exited <-chan struct{}
	if h != nil {
		exited = h.Done()
	}

	var dialer net.Dialer
	err := retryWithBackoff(ctx, RetryConfig{
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  time.Second,
	}, func() error {
		select {
		case <-exited:
			return permanent(fmt.Errorf("%w before listening on %s: %v", ErrExited, addr, h.Err()))
		default:
		}

		attemptCtx, cancelAttempt := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancelAttempt()
		conn, err := dialer.DialContext(attemptCtx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s after %v: %v", ErrNotReady, addr, timeout, err)
	}
	return err
}
