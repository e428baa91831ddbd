package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vigil/internal/domain/check"
)

var _ check.Repo = (*CheckRepoImpl)(nil)

type CheckRepoImpl struct {
	db *DB
}

func NewCheckRepo(db *DB) *CheckRepoImpl { return &CheckRepoImpl{db: db} }

const (
	qCheckInsert = `
INSERT INTO checks (endpoint_id, checked_at, is_up, latency_ms, status_code)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`

	qCheckCountSince = `
SELECT COUNT(*) FILTER (WHERE is_up), COUNT(*)
FROM checks
WHERE endpoint_id = $1 AND checked_at >= $2;
`

	qCheckListSince = `
SELECT id, endpoint_id, checked_at, is_up, latency_ms, status_code
FROM checks
WHERE endpoint_id = $1 AND checked_at >= $2
ORDER BY checked_at, id;
`
)

func (r *CheckRepoImpl) Insert(ctx context.Context, c *check.Check) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qCheckInsert,
		c.EndpointID, c.CheckedAt, c.Up, c.LatencyMs, c.StatusCode,
	).Scan(&c.ID); err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

func (r *CheckRepoImpl) CountSince(ctx context.Context, endpointID int64, since time.Time) (int, int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var up, total int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCheckCountSince, endpointID, since).Scan(&up, &total); err != nil {
		return 0, 0, fmt.Errorf("count checks: %w", err)
	}
	return up, total, nil
}

func (r *CheckRepoImpl) ListSince(ctx context.Context, endpointID int64, since time.Time) ([]check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qCheckListSince, endpointID, since)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	return collect(rows, func(rows pgx.Rows) (check.Check, error) {
		var c check.Check
		if err := rows.Scan(&c.ID, &c.EndpointID, &c.CheckedAt, &c.Up, &c.LatencyMs, &c.StatusCode); err != nil {
			return c, fmt.Errorf("scan check: %w", err)
		}
		c.CheckedAt = c.CheckedAt.UTC()
		return c, nil
	})
}
