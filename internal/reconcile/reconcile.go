// Package reconcile brings the sqlite records back in line with the project
// folders on disk after crashes or manual deletions.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/lock"
	"github.com/liminalbooks/liminal/internal/project"
)

// InterruptedSummary is stored on runs that were still running when their process died.
const InterruptedSummary = "interrupted"

// Records is the slice of the database reconciliation touches.
type Records interface {
	FailRunningRuns(ctx context.Context, summary string) (int, error)
	ProjectIDs(ctx context.Context) ([]string, error)
	DeleteProjectSessions(ctx context.Context, projectID string) error
	DeleteProjectRuns(ctx context.Context, projectID string) error
}

// Projects reports whether a project still exists.
type Projects interface {
	LoadMeta(projectID string) (project.Meta, error)
}

// Result summarizes a reconciliation.
type Result struct {
	InterruptedRuns int
	OrphanProjects  []string
	SkippedRuns     bool
}

// Run fails stale running runs when no agent holds the lock, then drops
// sessions and runs of projects that no longer exist on disk.
func Run(ctx context.Context, dataDir string, records Records, projects Projects, logger zerolog.Logger) (Result, error) {
	var res Result

	l, ok, err := lock.TryAcquire(dataDir)
	if err != nil {
		return res, err
	}
	if ok {
		n, err := records.FailRunningRuns(ctx, InterruptedSummary)
		_ = l.Release()
		if err != nil {
			return res, err
		}
		res.InterruptedRuns = n
		if n > 0 {
			logger.Info().Int("runs", n).Msg("marked interrupted runs as failed")
		}
	} else {
		res.SkippedRuns = true
		logger.Debug().Msg("agent lock held, leaving running runs alone")
	}

	ids, err := records.ProjectIDs(ctx)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		_, err := projects.LoadMeta(id)
		if err == nil {
			continue
		}
		if !errors.Is(err, project.ErrProjectNotFound) && !errors.Is(err, project.ErrInvalidName) {
			return res, fmt.Errorf("check project %s: %w", id, err)
		}
		if err := records.DeleteProjectSessions(ctx, id); err != nil {
			return res, err
		}
		if err := records.DeleteProjectRuns(ctx, id); err != nil {
			return res, err
		}
		logger.Info().Str("project_id", id).Msg("removed records of missing project")
		res.OrphanProjects = append(res.OrphanProjects, id)
	}
	return res, nil
}
