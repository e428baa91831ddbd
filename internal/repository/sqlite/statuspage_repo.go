package sqlite

import (
	"context"
	"fmt"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
)

var _ statuspage.Repo = (*StatusPageRepo)(nil)

type StatusPageRepo struct {
	db *DB
}

func NewStatusPageRepo(db *DB) *StatusPageRepo { return &StatusPageRepo{db: db} }

func (r *StatusPageRepo) ListByEndpoint(ctx context.Context, endpointID int64) ([]*statuspage.StatusPage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	rows, err := eq.QueryContext(ctx, `
SELECT p.id, p.user_id, p.slug, p.name, p.status
FROM status_pages p
JOIN status_page_endpoints l ON l.status_page_id = p.id
WHERE l.endpoint_id = ?
ORDER BY p.id`, endpointID)
	if err != nil {
		return nil, fmt.Errorf("query status pages: %w", err)
	}
	var out []*statuspage.StatusPage
	for rows.Next() {
		var (
			p      statuspage.StatusPage
			status string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status page: %w", err)
		}
		p.Status = statuspage.Status(status)
		out = append(out, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for _, p := range out {
		if p.EndpointIDs, err = r.endpointIDs(ctx, eq, p.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Lock reads the page. Writers are already serialised by the single connection.
func (r *StatusPageRepo) Lock(ctx context.Context, id int64) (*statuspage.StatusPage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	var (
		p      statuspage.StatusPage
		status string
	)
	err := eq.QueryRowContext(ctx, `SELECT id, user_id, slug, name, status FROM status_pages WHERE id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &status)
	if err != nil {
		return nil, notFound(err, "status page")
	}
	p.Status = statuspage.Status(status)
	if p.EndpointIDs, err = r.endpointIDs(ctx, eq, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *StatusPageRepo) endpointIDs(ctx context.Context, eq execQueryer, pageID int64) ([]int64, error) {
	rows, err := eq.QueryContext(ctx,
		`SELECT endpoint_id FROM status_page_endpoints WHERE status_page_id = ? ORDER BY endpoint_id`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query page endpoints: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan page endpoint: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *StatusPageRepo) UpdateStatus(ctx context.Context, id int64, s statuspage.Status) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx, `UPDATE status_pages SET status = ? WHERE id = ?`, string(s), id)
	if err != nil {
		return fmt.Errorf("update status page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("status page %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
