package endpoint

import "context"

type Repo interface {
	ListActive(ctx context.Context) ([]*Endpoint, error)
	GetByID(ctx context.Context, id int64) (*Endpoint, error)
	UpdateHealth(ctx context.Context, id int64, h Health) error
}
