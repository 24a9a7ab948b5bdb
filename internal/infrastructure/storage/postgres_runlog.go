package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// RunLogRepository owns the generation_logs table. Each pipeline run
// writes its row exactly twice: once at start, once at the end.
type RunLogRepository struct {
	db Querier
}

var _ ports.RunLogRepository = (*RunLogRepository)(nil)

// NewRunLogRepository wires a pgx pool (or compatible querier).
func NewRunLogRepository(db Querier) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// Begin creates the running row before any research starts so a crash
// mid-run stays diagnosable.
func (r *RunLogRepository) Begin(ctx context.Context, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()

	query, args, err := builder.
		Insert("generation_logs").
		Columns("id", "started_at", "status").
		Values(id, startedAt, string(domain.RunRunning)).
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return uuid.Nil, fmt.Errorf("insert run log: %w", err)
	}
	return id, nil
}

// Finish applies the single terminal update for a run.
func (r *RunLogRepository) Finish(ctx context.Context, log domain.RunLog) error {
	update := builder.
		Update("generation_logs").
		Set("status", string(log.Status)).
		Set("completed_at", log.CompletedAt).
		Set("articles_generated", log.ArticlesGenerated).
		Set("total_prompt_tokens", log.PromptTokens).
		Set("total_completion_tokens", log.CompletionTokens).
		Set("errors", nullStrings(log.Errors)).
		Where(sq.Eq{"id": log.ID})

	if log.Notes != "" {
		update = update.Set("notes", log.Notes)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("finish run log %s: %w", log.ID, err)
	}
	return nil
}

// ReconcileStale marks long-running rows as failed. A run killed by the
// scheduler's wall-clock budget never reaches Finish, so its row would
// otherwise stay "running" forever.
func (r *RunLogRepository) ReconcileStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	query, args, err := builder.
		Update("generation_logs").
		Set("status", string(domain.RunFailed)).
		Set("completed_at", time.Now()).
		Set("errors", []string{"run marked stale: still running past threshold"}).
		Where(sq.Eq{"status": string(domain.RunRunning)}).
		Where(sq.Lt{"started_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reconcile stale runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
