package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/taskconfig"
)

// ErrRunNotFound is returned when no run has the requested task ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the recorded history of one collection task.
type Run struct {
	TaskID     uuid.UUID             `json:"task_id"`
	Config     taskconfig.TaskConfig `json:"config"`
	State      collector.State       `json:"state"`
	Progress   int                   `json:"progress"`
	Message    string                `json:"message"`
	Reason     string                `json:"reason,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// RunStore keeps run history in SQLite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (or creates) the run database at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		task_id TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		state TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Begin records a newly started task.
func (s *RunStore) Begin(task *collector.Task) error {
	cfg, err := json.Marshal(task.Config())
	if err != nil {
		return fmt.Errorf("failed to marshal task config: %w", err)
	}

	snap := task.Snapshot()
	_, err = s.db.Exec(`
		INSERT INTO runs (task_id, config, state, progress, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID().String(), string(cfg), string(snap.State), snap.Progress, snap.Message,
		formatTime(snap.At),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Record stores the latest event for a run. Terminal events also set the
// finish time.
func (s *RunStore) Record(ev collector.StatusEvent) error {
	var finishedAt any
	if ev.State.IsTerminal() {
		finishedAt = formatTime(ev.At)
	}

	result, err := s.db.Exec(`
		UPDATE runs
		SET state = ?, progress = ?, message = ?, reason = ?, finished_at = ?
		WHERE task_id = ?`,
		string(ev.State), ev.Progress, ev.Message, ev.Reason, finishedAt, ev.TaskID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Track records the task's start, waits for it to finish, then records the
// terminal event. It returns ctx's error if ctx ends first.
func (s *RunStore) Track(ctx context.Context, task *collector.Task) error {
	if err := s.Begin(task); err != nil {
		return err
	}

	for ev := range task.Subscribe(ctx) {
		if ev.State.IsTerminal() {
			return s.Record(ev)
		}
	}
	return ctx.Err()
}

const selectColumns = `
	SELECT task_id, config, state, progress, message, reason, started_at, finished_at
	FROM runs`

// Get returns the run for a task.
func (s *RunStore) Get(taskID uuid.UUID) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(selectColumns+" WHERE task_id = ?", taskID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// List returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *RunStore) List(limit int) ([]Run, error) {
	query := selectColumns + " ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var taskIDStr, cfgJSON, state, startedAtStr string
	var finishedAtStr sql.NullString
	run := &Run{}

	err := row.Scan(&taskIDStr, &cfgJSON, &state, &run.Progress, &run.Message, &run.Reason,
		&startedAtStr, &finishedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.TaskID, err = uuid.Parse(taskIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task ID: %w", err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task config: %w", err)
	}
	run.State = collector.State(state)
	run.StartedAt = parseTime(startedAtStr)
	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}

	return run, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
