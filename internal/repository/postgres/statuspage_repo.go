package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
)

var _ statuspage.Repo = (*StatusPageRepoImpl)(nil)

type StatusPageRepoImpl struct {
	db *DB
}

func NewStatusPageRepo(db *DB) *StatusPageRepoImpl { return &StatusPageRepoImpl{db: db} }

const (
	qPageListByEndpoint = `
SELECT p.id, p.user_id, p.slug, p.name, p.status,
       COALESCE(array_agg(x.endpoint_id ORDER BY x.endpoint_id) FILTER (WHERE x.endpoint_id IS NOT NULL), '{}')
FROM status_pages p
JOIN status_page_endpoints l ON l.status_page_id = p.id AND l.endpoint_id = $1
LEFT JOIN status_page_endpoints x ON x.status_page_id = p.id
GROUP BY p.id
ORDER BY p.id;
`

	qPageLock = `
SELECT id, user_id, slug, name, status
FROM status_pages
WHERE id = $1
FOR UPDATE;
`

	qPageEndpoints = `
SELECT endpoint_id FROM status_page_endpoints WHERE status_page_id = $1 ORDER BY endpoint_id;
`

	qPageUpdateStatus = `UPDATE status_pages SET status = $2 WHERE id = $1;`
)

func (r *StatusPageRepoImpl) ListByEndpoint(ctx context.Context, endpointID int64) ([]*statuspage.StatusPage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qPageListByEndpoint, endpointID)
	if err != nil {
		return nil, fmt.Errorf("query status pages: %w", err)
	}
	return collect(rows, func(rows pgx.Rows) (*statuspage.StatusPage, error) {
		var (
			p      statuspage.StatusPage
			status string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &status, &p.EndpointIDs); err != nil {
			return nil, fmt.Errorf("scan status page: %w", err)
		}
		p.Status = statuspage.Status(status)
		return &p, nil
	})
}

// Lock must run inside a transaction; outside one the row lock is released immediately.
func (r *StatusPageRepoImpl) Lock(ctx context.Context, id int64) (*statuspage.StatusPage, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	var (
		p      statuspage.StatusPage
		status string
	)
	if err := eq.QueryRow(ctx, qPageLock, id).Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &status); err != nil {
		return nil, notFound(err, "status page")
	}
	p.Status = statuspage.Status(status)

	rows, err := eq.Query(ctx, qPageEndpoints, id)
	if err != nil {
		return nil, fmt.Errorf("query page endpoints: %w", err)
	}
	ids, err := collect(rows, func(rows pgx.Rows) (int64, error) {
		var v int64
		return v, rows.Scan(&v)
	})
	if err != nil {
		return nil, err
	}
	p.EndpointIDs = ids
	return &p, nil
}

func (r *StatusPageRepoImpl) UpdateStatus(ctx context.Context, id int64, s statuspage.Status) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qPageUpdateStatus, id, string(s))
	if err != nil {
		return fmt.Errorf("update status page: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("status page %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
