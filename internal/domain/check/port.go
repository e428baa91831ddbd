package check

import (
	"context"
	"time"
)

type Repo interface {
	Insert(ctx context.Context, c *Check) error
	CountSince(ctx context.Context, endpointID int64, since time.Time) (up, total int, err error)
	// ListSince returns checks with checked_at >= since, oldest first.
	ListSince(ctx context.Context, endpointID int64, since time.Time) ([]Check, error)
}
