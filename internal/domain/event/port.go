package event

import "context"

type Sink interface {
	Publish(ctx context.Context, e Event) error
}
