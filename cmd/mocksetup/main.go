// Command mocksetup prepares a build machine for the mock S3 server tests.
//
// The run command installs the fixture's Python dependencies, checks that
// they import, appends -DENABLE_MOCK_SERVER_TESTS=ON to the project's
// cmake_args and starts tests/mock_s3_server/mock_s3_server.py. The server
// is terminated when mocksetup receives SIGINT or SIGTERM, or when the
// interactive console is left with quit.
//
// Usage:
//
//	mocksetup <command> [flags]
//
// Commands:
//
//	run       Run the setup action and supervise the mock server
//	check     Install and verify the dependencies only
//	events    Inspect a setup event log (view, stats, export)
//	history   List recorded setup runs
//	discover  List mock servers advertised over mDNS
//
// Examples:
//
//	# Run from the source root with the action config next to the pipeline definition
//	mocksetup run -config .builder/actions/mock_server_setup.yaml -project build/project.yaml
//
//	# Record events and history, and keep a console open
//	mocksetup run -events setup.evlog -history runs.db -interactive
//
//	# Show what a run did
//	mocksetup events view -kind command setup.evlog
//
//	# Last ten runs with their steps
//	mocksetup history -db runs.db -n 10 -steps
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fboranek/mocksetup/cmd/mocksetup/commands"
	"github.com/fboranek/mocksetup/cmd/mocksetup/console"
	"github.com/fboranek/mocksetup/pkg/action"
	"github.com/fboranek/mocksetup/pkg/history"
	"github.com/fboranek/mocksetup/pkg/log"
)

const usage = `mocksetup - mock S3 server test setup

Usage:
  mocksetup <command> [flags]

Commands:
  run       Run the setup action and supervise the mock server
  check     Install and verify the dependencies only
  events    Inspect a setup event log (view, stats, export)
  history   List recorded setup runs
  discover  List mock servers advertised over mDNS

Use "mocksetup <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runRun(args)
	case "check":
		runCheck(args)
	case "events":
		runEvents(args)
	case "history":
		runHistory(args)
	case "discover":
		runDiscover(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// sessionFlags registers the flags shared by run and check.
func sessionFlags(fs *flag.FlagSet) (*commands.SessionOptions, *string) {
	opts := &commands.SessionOptions{}
	fs.StringVar(&opts.ConfigPath, "config", "", "Action config file (YAML)")
	fs.StringVar(&opts.BaseDir, "root", "", "Source root that fixture_dir is relative to (default: current directory)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Log commands instead of running them")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	return opts, logLevel
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q\n", level)
		os.Exit(1)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `mocksetup run - Run the setup action and supervise the mock server

Usage:
  mocksetup run [flags]

Flags:
`)
		fs.PrintDefaults()
	}

	opts, logLevel := sessionFlags(fs)
	fs.StringVar(&opts.ProjectPath, "project", "project.yaml", "Project config file, updated with the test flag")
	stage := fs.String("stage", string(action.StagePreBuild), "Pipeline stage: pre_build, build, post_build")
	fs.StringVar(&opts.EventsPath, "events", "", "Write the CBOR event log to this file")
	fs.StringVar(&opts.HistoryPath, "history", "", "Record the run in this SQLite database")
	quietFixture := fs.Bool("quiet-fixture", false, "Discard the mock server's output")
	interactive := fs.Bool("interactive", false, "Open a console while the mock server runs")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger(*logLevel, os.Stderr)
	st, err := action.ParseStage(*stage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.Stage = st
	opts.Logger = logger
	if *quietFixture {
		opts.FixtureOutput = io.Discard
	}

	s, err := commands.NewSession(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Cleanup is tied to this scope: a signal, console quit or a failed
	// stage all end in Supervisor.Close.
	stop := s.Env.Supervisor.CloseOnSignal(ctx)
	defer stop()

	if err := s.Run(ctx); err != nil {
		logger.Error("setup failed", "run_id", s.Env.RunID, "error", err)
		cancel()
		<-s.Env.Supervisor.Closed()
		_ = s.Close(context.Background())
		os.Exit(1)
	}

	f := s.Fixture()
	logger.Info("mock server running", "run_id", s.Env.RunID, "pid", f.PID())

	if *interactive {
		con, err := console.New(f, s.Env.Project, s.Action.Config().ConfigKey)
		if err != nil {
			logger.Error("console unavailable", "error", err)
		} else {
			go func() {
				con.Run(ctx)
				cancel()
			}()
		}
	}

	<-s.Env.Supervisor.Closed()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*s.Action.Config().KillGrace)
	defer closeCancel()
	if err := s.Close(closeCtx); err != nil {
		logger.Error("cleanup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("mock server stopped")
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `mocksetup check - Install and verify the dependencies only

Usage:
  mocksetup check [flags]

Flags:
`)
		fs.PrintDefaults()
	}

	opts, logLevel := sessionFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	opts.Logger = newLogger(*logLevel, os.Stderr)

	s, err := commands.NewSession(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close(context.Background())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.Check(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		s.Close(context.Background())
		os.Exit(1)
	}
	fmt.Println("Dependencies OK")
}

func runEvents(args []string) {
	const eventsUsage = `mocksetup events - Inspect a setup event log

Usage:
  mocksetup events view [flags] <file.evlog>
  mocksetup events stats <file.evlog>
  mocksetup events export [flags] <file.evlog>
`
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, eventsUsage)
		os.Exit(1)
	}

	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("events "+sub, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, eventsUsage+"\nFlags:\n")
		fs.PrintDefaults()
	}

	var vo commands.ViewOptions
	if sub == "view" || sub == "export" {
		fs.StringVar(&vo.RunID, "run-id", "", "Filter by run ID")
		fs.StringVar(&vo.Action, "action", "", "Filter by action name")
		fs.StringVar(&vo.Kind, "kind", "", "Filter by kind (step-begin, step-end, command, config, spawn, exit, terminate, error)")
		fs.StringVar(&vo.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
		fs.StringVar(&vo.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	path := fs.Arg(0)

	var filter log.Filter
	if sub == "view" || sub == "export" {
		var err error
		if filter, err = vo.Filter(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	var err error
	switch sub {
	case "view":
		err = commands.RunView(path, filter, os.Stdout)
	case "stats":
		err = commands.RunStatsCommand(path, os.Stdout)
	case "export":
		err = commands.RunExport(path, filter, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown events command: %s\n", sub)
		fmt.Fprint(os.Stderr, eventsUsage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `mocksetup history - List recorded setup runs

Usage:
  mocksetup history [flags]

Flags:
`)
		fs.PrintDefaults()
	}

	db := fs.String("db", "mocksetup.db", "History database")
	limit := fs.Int("n", 20, "Number of runs to show")
	steps := fs.Bool("steps", false, "Show the steps of each run")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	store, err := history.Open(*db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := commands.RunHistory(store, *limit, *steps, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	timeout := fs.Duration("timeout", 3*time.Second, "How long to listen for advertisements")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := commands.RunDiscover(ctx, *timeout, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
