package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// Run is an agent loop execution record.
type Run struct {
	RunID      string
	Kind       string
	ProjectID  string
	SessionID  string
	Status     string
	Iterations int
	Summary    string
	CreatedAt  time.Time
	EndedAt    time.Time
}

// Event is one progress notification of a run.
type Event struct {
	Seq       int
	Timestamp time.Time
	Type      string
	Iteration int
	Tool      string
	Message   string
}

// CreateRun inserts the run record and a run_started event.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	return s.withTx(ctx, "create run", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO agent_runs(run_id, kind, project_id, session_id, status, iterations, summary, created_at, ended_at)
			VALUES(?, ?, ?, ?, ?, 0, NULL, ?, NULL)`,
			run.RunID, run.Kind, nullableString(run.ProjectID), nullableString(run.SessionID),
			RunStatusRunning, s.timestamp()); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return s.insertEvent(ctx, tx, run.RunID, Event{Type: "run_started", Message: run.Kind + " run started"})
	})
}

// AppendEvent records a progress event for a run.
func (s *Store) AppendEvent(ctx context.Context, runID string, ev Event) error {
	return s.withTx(ctx, "append event", func(tx *sql.Tx) error {
		return s.insertEvent(ctx, tx, runID, ev)
	})
}

// FinishRun stores the final status of a run together with a closing event.
func (s *Store) FinishRun(ctx context.Context, runID, status string, iterations int, summary string) error {
	return s.withTx(ctx, "finish run", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE agent_runs SET status=?, iterations=?, summary=?, ended_at=? WHERE run_id=?`,
			status, iterations, nullableString(summary), s.timestamp(), runID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("finish run %q: %w", runID, ErrRunNotFound)
		}
		return s.insertEvent(ctx, tx, runID, Event{Type: "run_" + status, Iteration: iterations, Message: summary})
	})
}

// GetRun returns a run record.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, kind, COALESCE(project_id, ''), COALESCE(session_id, ''), status,
		iterations, COALESCE(summary, ''), created_at, COALESCE(ended_at, '') FROM agent_runs WHERE run_id=?`, runID)
	var run Run
	var createdAt, endedAt string
	if err := row.Scan(&run.RunID, &run.Kind, &run.ProjectID, &run.SessionID, &run.Status,
		&run.Iterations, &run.Summary, &createdAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("get run %q: %w", runID, ErrRunNotFound)
		}
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	run.CreatedAt = parseTime(createdAt)
	run.EndedAt = parseTime(endedAt)
	return run, nil
}

// ListRuns returns the newest runs, optionally filtered by project.
func (s *Store) ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, kind, COALESCE(project_id, ''), COALESCE(session_id, ''), status,
		iterations, COALESCE(summary, ''), created_at, COALESCE(ended_at, '')
		FROM agent_runs WHERE ?='' OR project_id=? ORDER BY created_at DESC, run_id LIMIT ?`,
		projectID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var run Run
		var createdAt, endedAt string
		if err := rows.Scan(&run.RunID, &run.Kind, &run.ProjectID, &run.SessionID, &run.Status,
			&run.Iterations, &run.Summary, &createdAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = parseTime(createdAt)
		run.EndedAt = parseTime(endedAt)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// ListEvents returns the events of a run in order.
func (s *Store) ListEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, ts, type, iteration, COALESCE(tool, ''), COALESCE(message, '')
		FROM agent_events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var ev Event
		var ts string
		if err := rows.Scan(&ev.Seq, &ts, &ev.Type, &ev.Iteration, &ev.Tool, &ev.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = parseTime(ts)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, runID string, ev Event) error {
	seq, err := s.nextSeq(ctx, tx, runID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO agent_events(run_id, seq, ts, type, iteration, tool, message)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, s.timestamp(), ev.Type, ev.Iteration, nullableString(ev.Tool), nullableString(ev.Message)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, runID string) (int, error) {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM agent_events WHERE run_id=?`, runID)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("read event seq: %w", err)
	}
	return seq + 1, nil
}
