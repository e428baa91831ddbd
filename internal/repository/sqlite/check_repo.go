package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Vigil/internal/domain/check"
)

var _ check.Repo = (*CheckRepo)(nil)

type CheckRepo struct {
	db *DB
}

func NewCheckRepo(db *DB) *CheckRepo { return &CheckRepo{db: db} }

func (r *CheckRepo) Insert(ctx context.Context, c *check.Check) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx,
		`INSERT INTO checks (endpoint_id, checked_at, is_up, latency_ms, status_code) VALUES (?, ?, ?, ?, ?)`,
		c.EndpointID, millis(c.CheckedAt), c.Up, c.LatencyMs, c.StatusCode)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("check id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CheckRepo) CountSince(ctx context.Context, endpointID int64, since time.Time) (int, int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var up, total int
	err := r.db.execQueryer(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(is_up), 0), COUNT(*) FROM checks WHERE endpoint_id = ? AND checked_at >= ?`,
		endpointID, millis(since)).Scan(&up, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count checks: %w", err)
	}
	return up, total, nil
}

func (r *CheckRepo) ListSince(ctx context.Context, endpointID int64, since time.Time) ([]check.Check, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).QueryContext(ctx,
		`SELECT id, endpoint_id, checked_at, is_up, latency_ms, status_code
		 FROM checks WHERE endpoint_id = ? AND checked_at >= ? ORDER BY checked_at, id`,
		endpointID, millis(since))
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var out []check.Check
	for rows.Next() {
		var (
			c  check.Check
			at int64
		)
		if err := rows.Scan(&c.ID, &c.EndpointID, &at, &c.Up, &c.LatencyMs, &c.StatusCode); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		c.CheckedAt = fromMillis(at)
		out = append(out, c)
	}
	return out, rows.Err()
}
