// Package console provides the interactive command line shown while a
// fixture is supervised by mocksetup run -interactive.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/fboranek/mocksetup/pkg/project"
)

// Fixture is the part of a running fixture the console controls.
type Fixture interface {
	PID() int
	Running() bool
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Console handles interactive mode.
type Console struct {
	fixture Fixture
	project *project.Config
	key     string
	rl      *readline.Instance
}

// New creates a console for f. key is the project config list to show
// for the flags command.
func New(f Fixture, p *project.Config, key string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mocksetup> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{fixture: f, project: p, key: key, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the prompt. Use it for
// log output while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) {
	defer c.rl.Close()

	w := c.rl.Stdout()
	printHelp(w)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(w, "Exiting...")
			return
		}

		if quit := Execute(ctx, c.fixture, c.project, c.key, line, w); quit {
			return
		}
	}
}

// Execute runs one console command line and reports whether the console
// should exit.
func Execute(ctx context.Context, f Fixture, p *project.Config, key, line string, w io.Writer) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "help", "?":
		printHelp(w)

	case "status", "s":
		if f.Running() {
			fmt.Fprintf(w, "fixture running (pid %d)\n", f.PID())
		} else {
			fmt.Fprintln(w, "fixture not running")
		}

	case "flags", "f":
		values := p.Get(key)
		if len(values) == 0 {
			fmt.Fprintf(w, "%s is empty\n", key)
			break
		}
		fmt.Fprintf(w, "%s:\n", key)
		for _, v := range values {
			fmt.Fprintf(w, "  %s\n", v)
		}

	case "restart", "r":
		if err := f.Restart(ctx); err != nil {
			fmt.Fprintf(w, "restart failed: %v\n", err)
			break
		}
		fmt.Fprintf(w, "fixture restarted (pid %d)\n", f.PID())

	case "stop":
		if err := f.Stop(ctx); err != nil {
			fmt.Fprintf(w, "stop failed: %v\n", err)
			break
		}
		fmt.Fprintln(w, "fixture stopped")

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(w, "unknown command: %s (type 'help')\n", parts[0])
	}
	return false
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `Commands:
  status   Show whether the fixture is running
  flags    Show the project's build flags
  restart  Restart the fixture
  stop     Stop the fixture
  quit     Terminate the fixture and exit
`)
}
