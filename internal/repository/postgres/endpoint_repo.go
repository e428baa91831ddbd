package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
)

var _ endpoint.Repo = (*EndpointRepoImpl)(nil)

type EndpointRepoImpl struct {
	db *DB
}

func NewEndpointRepo(db *DB) *EndpointRepoImpl { return &EndpointRepoImpl{db: db} }

const (
	endpointCols = `
SELECT e.id, e.user_id, e.name, e.url, e.status, e.uptime, e.last_check, e.interval_sec, e.timeout_sec, e.active,
       COALESCE(array_agg(l.status_page_id ORDER BY l.status_page_id) FILTER (WHERE l.status_page_id IS NOT NULL), '{}')
FROM endpoints e
LEFT JOIN status_page_endpoints l ON l.endpoint_id = e.id
`

	qEndpointListActive = endpointCols + `
WHERE e.active
GROUP BY e.id
ORDER BY e.id;
`

	qEndpointGetByID = endpointCols + `
WHERE e.id = $1
GROUP BY e.id;
`

	qEndpointUpdateHealth = `
UPDATE endpoints
SET status = $2, uptime = $3, last_check = $4
WHERE id = $1;
`
)

func scanEndpoint(row pgx.Row) (*endpoint.Endpoint, error) {
	var (
		e                       endpoint.Endpoint
		status                  string
		intervalSec, timeoutSec int
	)
	if err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Name,
		&e.URL,
		&status,
		&e.Uptime,
		&e.LastCheck,
		&intervalSec,
		&timeoutSec,
		&e.Active,
		&e.StatusPageIDs,
	); err != nil {
		return nil, notFound(err, "endpoint")
	}
	e.Status = endpoint.Status(status)
	e.Interval = time.Duration(intervalSec) * time.Second
	e.Timeout = time.Duration(timeoutSec) * time.Second
	if e.LastCheck != nil {
		t := e.LastCheck.UTC()
		e.LastCheck = &t
	}
	return &e, nil
}

func (r *EndpointRepoImpl) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qEndpointListActive)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	return collect(rows, func(rows pgx.Rows) (*endpoint.Endpoint, error) { return scanEndpoint(rows) })
}

func (r *EndpointRepoImpl) GetByID(ctx context.Context, id int64) (*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanEndpoint(r.db.execQueryer(ctx).QueryRow(ctx, qEndpointGetByID, id))
}

func (r *EndpointRepoImpl) UpdateHealth(ctx context.Context, id int64, h endpoint.Health) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qEndpointUpdateHealth, id, string(h.Status), h.Uptime, h.LastCheck)
	if err != nil {
		return fmt.Errorf("update endpoint health: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("endpoint %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
