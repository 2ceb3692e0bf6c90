package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetentionPolicy controls run cleanup. A zero policy keeps everything.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// PruneRuns deletes old run records and their events. Running runs are always kept.
func (s *Store) PruneRuns(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = s.now().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}

	type runRow struct {
		id        string
		createdAt time.Time
		status    string
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, status FROM agent_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list runs: %w", err)
	}
	var runs []runRow
	for rows.Next() {
		var id, createdAt, status string
		if err := rows.Scan(&id, &createdAt, &status); err != nil {
			_ = rows.Close()
			return PruneResult{}, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, runRow{id: id, createdAt: parseTime(createdAt), status: status})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return PruneResult{}, fmt.Errorf("iterate runs: %w", err)
	}
	_ = rows.Close()

	res := PruneResult{Considered: len(runs)}
	for idx, row := range runs {
		keep := row.status == RunStatusRunning
		if !keep && policy.KeepLast > 0 && idx < policy.KeepLast {
			keep = true
		}
		if !keep && policy.KeepDays > 0 {
			// Unparseable timestamps come back as the zero time; keep those rows.
			keep = row.createdAt.IsZero() || row.createdAt.After(cutoff)
		}
		if keep {
			res.Kept++
			continue
		}
		if !dryRun {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM agent_runs WHERE run_id=?`, row.id); err != nil {
				return res, fmt.Errorf("delete run %s: %w", row.id, err)
			}
		}
		res.Deleted++
	}
	return res, nil
}

// FailRunningRuns marks every run still in the running state as failed and
// returns how many were changed.
func (s *Store) FailRunningRuns(ctx context.Context, summary string) (int, error) {
	var ids []string
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM agent_runs WHERE status=? ORDER BY created_at`, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("list running runs: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("iterate runs: %w", err)
	}
	_ = rows.Close()

	for _, id := range ids {
		err := s.withTx(ctx, "fail run", func(tx *sql.Tx) error {
			var iterations int
			if err := tx.QueryRowContext(ctx, `SELECT iterations FROM agent_runs WHERE run_id=?`, id).Scan(&iterations); err != nil {
				return fmt.Errorf("read run: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE agent_runs SET status=?, summary=?, ended_at=? WHERE run_id=?`,
				RunStatusFailed, nullableString(summary), s.timestamp(), id); err != nil {
				return fmt.Errorf("update run: %w", err)
			}
			return s.insertEvent(ctx, tx, id, Event{Type: "run_" + RunStatusFailed, Iteration: iterations, Message: summary})
		})
		if err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// ProjectIDs returns every project id referenced by sessions or runs.
func (s *Store) ProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id FROM chat_sessions
		UNION SELECT project_id FROM agent_runs WHERE project_id IS NOT NULL
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	return out, nil
}

// DeleteProjectRuns removes all runs of a project with their events.
func (s *Store) DeleteProjectRuns(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM agent_runs WHERE project_id=?`, projectID); err != nil {
		return fmt.Errorf("delete project runs: %w", err)
	}
	return nil
}
