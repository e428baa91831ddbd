package stats

import (
	"context"
	"errors"
)

// ErrStale reports a Set skipped because the endpoint was invalidated after the
// view was computed.
var ErrStale = errors.New("stats view is stale")

type Cache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, endpointID int64, historyDays int) (s *Stats, ok bool, err error)
	// Generation is bumped by every Invalidate. Read it before computing a view.
	Generation(ctx context.Context, endpointID int64) (int64, error)
	// Set stores s only while the endpoint is still at generation gen, else returns ErrStale.
	Set(ctx context.Context, s *Stats, gen int64) error
	// Invalidate drops every cached view of the endpoint and bumps its generation.
	Invalidate(ctx context.Context, endpointID int64) error
}
