package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fboranek/mocksetup/pkg/discovery"
)

// RunDiscover browses for advertised fixtures and prints them.
func RunDiscover(ctx context.Context, timeout time.Duration, w io.Writer) error {
	services, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return fmt.Errorf("browse failed: %w", err)
	}
	formatServices(w, services)
	return nil
}

func formatServices(w io.Writer, services []discovery.Service) {
	if len(services) == 0 {
		fmt.Fprintln(w, "No fixtures found.")
		return
	}
	for _, s := range services {
		fmt.Fprintf(w, "%s  %s:%d  run=%s pid=%d", s.Instance, s.Host, s.Port, shortID(s.RunID), s.PID)
		if len(s.Addresses) > 0 {
			fmt.Fprintf(w, "  [%s]", strings.Join(s.Addresses, ", "))
		}
		fmt.Fprintln(w)
	}
}
