package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/incident"
)

var _ incident.Repo = (*IncidentRepo)(nil)

type IncidentRepo struct {
	db *DB
}

func NewIncidentRepo(db *DB) *IncidentRepo { return &IncidentRepo{db: db} }

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeIncident(in *incident.Incident) (affected, timeline string, err error) {
	ids := in.AffectedComponents
	if ids == nil {
		ids = []int64{}
	}
	if affected, err = encodeJSON(ids); err != nil {
		return "", "", fmt.Errorf("encode affected components: %w", err)
	}
	tl := in.Timeline
	if tl == nil {
		tl = []incident.Update{}
	}
	if timeline, err = encodeJSON(tl); err != nil {
		return "", "", fmt.Errorf("encode timeline: %w", err)
	}
	return affected, timeline, nil
}

func (r *IncidentRepo) Create(ctx context.Context, in *incident.Incident) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	affected, timeline, err := encodeIncident(in)
	if err != nil {
		return err
	}
	res, err := r.db.execQueryer(ctx).ExecContext(ctx, `
INSERT INTO incidents (status_page_id, title, status, impact, started_at, updated_at, resolved_at, affected_components, timeline)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.StatusPageID, in.Title, string(in.Status), string(in.Impact),
		millis(in.StartedAt), millis(in.UpdatedAt), nullMillis(in.ResolvedAt), affected, timeline)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("incident id: %w", err)
	}
	return nil
}

// ListUnresolved filters affected components in Go; they are stored as a JSON array.
func (r *IncidentRepo) ListUnresolved(ctx context.Context, statusPageID, endpointID int64) ([]*incident.Incident, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).QueryContext(ctx, `
SELECT id, status_page_id, title, status, impact, started_at, updated_at, resolved_at, affected_components, timeline
FROM incidents
WHERE status_page_id = ? AND status <> 'resolved'
ORDER BY id`, statusPageID)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []*incident.Incident
	for rows.Next() {
		var (
			in                 incident.Incident
			status, impact     string
			started, updated   int64
			resolved           sql.NullInt64
			affected, timeline string
		)
		if err := rows.Scan(&in.ID, &in.StatusPageID, &in.Title, &status, &impact,
			&started, &updated, &resolved, &affected, &timeline); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		if err := json.Unmarshal([]byte(affected), &in.AffectedComponents); err != nil {
			return nil, fmt.Errorf("decode affected components: %w", err)
		}
		if !in.Affects(endpointID) {
			continue
		}
		if err := json.Unmarshal([]byte(timeline), &in.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
		in.Status = incident.Status(status)
		in.Impact = incident.Impact(impact)
		in.StartedAt = fromMillis(started)
		in.UpdatedAt = fromMillis(updated)
		in.ResolvedAt = fromNullMillis(resolved)
		out = append(out, &in)
	}
	return out, rows.Err()
}

func (r *IncidentRepo) Update(ctx context.Context, in *incident.Incident) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	affected, timeline, err := encodeIncident(in)
	if err != nil {
		return err
	}
	res, err := r.db.execQueryer(ctx).ExecContext(ctx, `
UPDATE incidents
SET title = ?, status = ?, impact = ?, updated_at = ?, resolved_at = ?, affected_components = ?, timeline = ?
WHERE id = ?`,
		in.Title, string(in.Status), string(in.Impact), millis(in.UpdatedAt), nullMillis(in.ResolvedAt),
		affected, timeline, in.ID)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("incident %d: %w", in.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *IncidentRepo) CountUnresolved(ctx context.Context, statusPageID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	err := r.db.execQueryer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE status_page_id = ? AND status <> 'resolved'`, statusPageID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}
