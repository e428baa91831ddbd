package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
)

var _ endpoint.Repo = (*EndpointRepo)(nil)

type EndpointRepo struct {
	db *DB
}

func NewEndpointRepo(db *DB) *EndpointRepo { return &EndpointRepo{db: db} }

const endpointCols = `SELECT id, user_id, name, url, status, uptime, last_check, interval_sec, timeout_sec, active FROM endpoints`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row rowScanner) (*endpoint.Endpoint, error) {
	var (
		e                       endpoint.Endpoint
		status                  string
		lastCheck               sql.NullInt64
		intervalSec, timeoutSec int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.URL, &status, &e.Uptime, &lastCheck,
		&intervalSec, &timeoutSec, &e.Active); err != nil {
		return nil, notFound(err, "endpoint")
	}
	e.Status = endpoint.Status(status)
	e.LastCheck = fromNullMillis(lastCheck)
	e.Interval = time.Duration(intervalSec) * time.Second
	e.Timeout = time.Duration(timeoutSec) * time.Second
	return &e, nil
}

func (r *EndpointRepo) ListActive(ctx context.Context) ([]*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	rows, err := eq.QueryContext(ctx, endpointCols+` WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	var out []*endpoint.Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	links, err := r.pageLinks(ctx, eq)
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		e.StatusPageIDs = links[e.ID]
	}
	return out, nil
}

func (r *EndpointRepo) GetByID(ctx context.Context, id int64) (*endpoint.Endpoint, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	e, err := scanEndpoint(eq.QueryRowContext(ctx, endpointCols+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	links, err := r.pageLinks(ctx, eq)
	if err != nil {
		return nil, err
	}
	e.StatusPageIDs = links[e.ID]
	return e, nil
}

func (r *EndpointRepo) pageLinks(ctx context.Context, eq execQueryer) (map[int64][]int64, error) {
	rows, err := eq.QueryContext(ctx, `SELECT endpoint_id, status_page_id FROM status_page_endpoints ORDER BY endpoint_id, status_page_id`)
	if err != nil {
		return nil, fmt.Errorf("query page links: %w", err)
	}
	defer rows.Close()

	out := map[int64][]int64{}
	for rows.Next() {
		var eid, pid int64
		if err := rows.Scan(&eid, &pid); err != nil {
			return nil, fmt.Errorf("scan page link: %w", err)
		}
		out[eid] = append(out[eid], pid)
	}
	return out, rows.Err()
}

func (r *EndpointRepo) UpdateHealth(ctx context.Context, id int64, h endpoint.Health) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx,
		`UPDATE endpoints SET status = ?, uptime = ?, last_check = ? WHERE id = ?`,
		string(h.Status), h.Uptime, millis(h.LastCheck), id)
	if err != nil {
		return fmt.Errorf("update endpoint health: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("endpoint %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
