package statuspage

import "context"

type Repo interface {
	ListByEndpoint(ctx context.Context, endpointID int64) ([]*StatusPage, error)
	// Lock reads the page and holds it for the surrounding transaction.
	Lock(ctx context.Context, id int64) (*StatusPage, error)
	UpdateStatus(ctx context.Context, id int64, s Status) error
}
