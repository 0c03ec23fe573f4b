package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fboranek/mocksetup/pkg/log"
)

// Store provides SQLite persistence for setup runs.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that reports step records the event stream
// could not write.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		fixture_pid INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS run_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_run_steps_run_id ON run_steps(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, project, stage, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Project, run.Stage, run.Status, run.StartedAt)
	return err
}

// CompleteRun marks a run as finished. A non-nil runErr marks it failed.
func (s *Store) CompleteRun(id string, fixturePID int, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, completed_at = ?, fixture_pid = ?, error_message = ?
		WHERE id = ?
	`, status, time.Now(), fixturePID, msg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SetFixturePID records the pid of the fixture a run started.
func (s *Store) SetFixturePID(id string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE runs SET fixture_pid = ? WHERE id = ?`, pid, id)
	return err
}

const runColumns = `id, project, stage, status, started_at, completed_at, fixture_pid, error_message`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(
		&run.ID, &run.Project, &run.Stage, &run.Status,
		&run.StartedAt, &completedAt, &run.FixturePID, &errMsg,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return &run, nil
}

// GetRun retrieves a run by ID. It returns nil, nil if there is none.
func (s *Store) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns runs, most recent first.
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT `+runColumns+` FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// AddStep records a finished step of a run.
func (s *Store) AddStep(step *Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO run_steps (run_id, action, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?)
	`, step.RunID, step.Action, step.Status, step.Duration.Milliseconds(), step.Error)
	return err
}

// Steps returns the steps of a run in execution order.
func (s *Store) Steps(runID string) ([]Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, action, status, duration_ms, error
		FROM run_steps WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		var ms int64
		var errMsg sql.NullString
		if err := rows.Scan(&step.RunID, &step.Action, &step.Status, &ms, &errMsg); err != nil {
			return nil, err
		}
		step.Duration = time.Duration(ms) * time.Millisecond
		step.Error = errMsg.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Log records step outcomes from the event stream. Other events are
// ignored. Write errors are logged, never returned.
func (s *Store) Log(event log.Event) {
	var status string
	switch event.Kind {
	case log.KindStepEnd:
		status = StatusCompleted
	case log.KindError:
		// Step failures carry a stage in Detail; spawn failures do not.
		if event.Detail == "" {
			return
		}
		status = StatusFailed
	default:
		return
	}
	err := s.AddStep(&Step{
		RunID:    event.RunID,
		Action:   event.Action,
		Status:   status,
		Duration: event.Duration,
		Error:    event.Error,
	})
	if err != nil {
		s.logger.Warn("failed to record step",
			"run", event.RunID,
			"action", event.Action,
			"status", status,
			"error", err)
	}
}

var _ log.Logger = (*Store)(nil)
