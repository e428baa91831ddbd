package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/incident"
)

var _ incident.Repo = (*IncidentRepoImpl)(nil)

type IncidentRepoImpl struct {
	db *DB
}

func NewIncidentRepo(db *DB) *IncidentRepoImpl { return &IncidentRepoImpl{db: db} }

const (
	qIncidentInsert = `
INSERT INTO incidents (status_page_id, title, status, impact, started_at, updated_at, resolved_at, affected_components, timeline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
RETURNING id;
`

	qIncidentListUnresolved = `
SELECT id, status_page_id, title, status, impact, started_at, updated_at, resolved_at, affected_components, timeline
FROM incidents
WHERE status_page_id = $1 AND status <> 'resolved' AND $2 = ANY (affected_components)
ORDER BY id;
`

	qIncidentUpdate = `
UPDATE incidents
SET title = $2, status = $3, impact = $4, updated_at = $5, resolved_at = $6, affected_components = $7, timeline = $8::jsonb
WHERE id = $1;
`

	qIncidentCountUnresolved = `
SELECT COUNT(*) FROM incidents WHERE status_page_id = $1 AND status <> 'resolved';
`
)

func encodeTimeline(t []incident.Update) (string, error) {
	if t == nil {
		t = []incident.Update{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode timeline: %w", err)
	}
	return string(b), nil
}

func affected(in *incident.Incident) []int64 {
	if in.AffectedComponents == nil {
		return []int64{}
	}
	return in.AffectedComponents
}

func (r *IncidentRepoImpl) Create(ctx context.Context, in *incident.Incident) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	timeline, err := encodeTimeline(in.Timeline)
	if err != nil {
		return err
	}
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qIncidentInsert,
		in.StatusPageID, in.Title, string(in.Status), string(in.Impact),
		in.StartedAt, in.UpdatedAt, in.ResolvedAt, affected(in), timeline,
	).Scan(&in.ID); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (r *IncidentRepoImpl) ListUnresolved(ctx context.Context, statusPageID, endpointID int64) ([]*incident.Incident, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qIncidentListUnresolved, statusPageID, endpointID)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	return collect(rows, func(rows pgx.Rows) (*incident.Incident, error) {
		var (
			in             incident.Incident
			status, impact string
			timeline       []byte
		)
		if err := rows.Scan(&in.ID, &in.StatusPageID, &in.Title, &status, &impact,
			&in.StartedAt, &in.UpdatedAt, &in.ResolvedAt, &in.AffectedComponents, &timeline); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		in.Status = incident.Status(status)
		in.Impact = incident.Impact(impact)
		if err := json.Unmarshal(timeline, &in.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
		return &in, nil
	})
}

func (r *IncidentRepoImpl) Update(ctx context.Context, in *incident.Incident) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	timeline, err := encodeTimeline(in.Timeline)
	if err != nil {
		return err
	}
	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qIncidentUpdate,
		in.ID, in.Title, string(in.Status), string(in.Impact), in.UpdatedAt, in.ResolvedAt, affected(in), timeline,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("incident %d: %w", in.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *IncidentRepoImpl) CountUnresolved(ctx context.Context, statusPageID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qIncidentCountUnresolved, statusPageID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}
