package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// lockKey identifies the pipeline's session-level advisory lock.
const lockKey int64 = 0x6761_7a65_7474_6501 // "gazette" + 1

// ErrLockHeld reports that another pipeline run currently holds the lock.
var ErrLockHeld = errors.New("pipeline run lock is held by another run")

// AdvisoryLock serializes pipeline runs with a Postgres advisory lock held
// on a dedicated pooled connection for the duration of the run. At most one
// run may be active per database.
type AdvisoryLock struct {
	pool *pgxpool.Pool
}

var _ ports.RunLock = (*AdvisoryLock)(nil)

// NewAdvisoryLock wires the pool the lock connection is drawn from.
func NewAdvisoryLock(pool *pgxpool.Pool) *AdvisoryLock {
	return &AdvisoryLock{pool: pool}
}

// Acquire takes the lock without waiting. On success the returned release
// func unlocks and returns the connection to the pool; it is safe to call
// from a defer even after the run's context is done.
func (l *AdvisoryLock) Acquire(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, ErrLockHeld
	}

	release := func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockKey)
		conn.Release()
	}
	return release, nil
}
