package sqlite

import (
	"context"
	"fmt"

	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
)

// Directory writes the rows the external CRUD layer normally owns. Used for seeding.
type Directory struct {
	db *DB
}

func NewDirectory(db *DB) *Directory { return &Directory{db: db} }

// CreateEndpoint inserts e with storage defaults for health fields left zero.
func (d *Directory) CreateEndpoint(ctx context.Context, e *endpoint.Endpoint) error {
	if e.Status == "" {
		e.Status = endpoint.StatusUp
		e.Uptime = 100
	}
	res, err := d.db.execQueryer(ctx).ExecContext(ctx, `
INSERT INTO endpoints (user_id, name, url, status, uptime, last_check, interval_sec, timeout_sec, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, e.URL, string(e.Status), e.Uptime, nullMillis(e.LastCheck),
		int64(e.Interval.Seconds()), int64(e.Timeout.Seconds()), e.Active)
	if err != nil {
		return fmt.Errorf("insert endpoint: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("endpoint id: %w", err)
	}
	return nil
}

func (d *Directory) CreateStatusPage(ctx context.Context, p *statuspage.StatusPage) error {
	if p.Status == "" {
		p.Status = statuspage.StatusOperational
	}
	eq := d.db.execQueryer(ctx)
	res, err := eq.ExecContext(ctx, `INSERT INTO status_pages (user_id, slug, name, status) VALUES (?, ?, ?, ?)`,
		p.UserID, p.Slug, p.Name, string(p.Status))
	if err != nil {
		return fmt.Errorf("insert status page: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("status page id: %w", err)
	}
	for _, eid := range p.EndpointIDs {
		if _, err := eq.ExecContext(ctx,
			`INSERT INTO status_page_endpoints (status_page_id, endpoint_id) VALUES (?, ?)`, p.ID, eid); err != nil {
			return fmt.Errorf("link endpoint %d: %w", eid, err)
		}
	}
	return nil
}

func (d *Directory) SetActive(ctx context.Context, endpointID int64, active bool) error {
	if _, err := d.db.execQueryer(ctx).ExecContext(ctx,
		`UPDATE endpoints SET active = ? WHERE id = ?`, active, endpointID); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}
