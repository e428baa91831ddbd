package incident

import "context"

type Repo interface {
	Create(ctx context.Context, in *Incident) error
	// ListUnresolved returns unresolved incidents of the page that reference the endpoint.
	ListUnresolved(ctx context.Context, statusPageID, endpointID int64) ([]*Incident, error)
	Update(ctx context.Context, in *Incident) error
	CountUnresolved(ctx context.Context, statusPageID int64) (int, error)
}
