package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/event"
)

func pageEvent(id int64) event.Event {
	return event.NewPageUpdate(event.PageUpdate{PageID: id, Slug: "acme", Status: "outage", EndpointID: 1})
}

func TestSubscribeSendsConnectedFirst(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	require.NoError(t, hub.Publish(context.Background(), pageEvent(1)))

	assert.Equal(t, event.TypeConnected, (<-sub.Events()).Type)
	assert.Equal(t, event.TypePageUpdate, (<-sub.Events()).Type)
}

func TestFullBufferDropsOnlyForThatSubscriber(t *testing.T) {
	hub := NewHub(2, zap.NewNop())
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	ctx := context.Background()
	<-fast.Events()
	require.NoError(t, hub.Publish(ctx, pageEvent(1)))
	<-fast.Events()
	require.NoError(t, hub.Publish(ctx, pageEvent(2)))
	require.NoError(t, hub.Publish(ctx, pageEvent(3)))

	// slow holds connected + event 1; events 2 and 3 were dropped for it.
	assert.Len(t, slow.Events(), 2)
	assert.Equal(t, event.TypeConnected, (<-slow.Events()).Type)
	assert.Equal(t, int64(1), (<-slow.Events()).Page.PageID)

	assert.Equal(t, int64(2), (<-fast.Events()).Page.PageID)
	assert.Equal(t, int64(3), (<-fast.Events()).Page.PageID)
}

func TestUnsubscribeClosesAndStopsDelivery(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe()
	assert.Equal(t, 1, hub.Len())

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Len())
	require.NoError(t, hub.Publish(context.Background(), pageEvent(1)))

	<-sub.Events()
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

type recordingSink struct {
	got []event.Event
	err error
}

func (s *recordingSink) Publish(_ context.Context, e event.Event) error {
	s.got = append(s.got, e)
	return s.err
}

func TestBroadcasterSwallowsSinkErrors(t *testing.T) {
	broken := &recordingSink{err: errors.New("kafka down")}
	ok := &recordingSink{}
	b := NewBroadcaster(zap.NewNop(), broken, ok)

	require.NoError(t, b.Publish(context.Background(), pageEvent(1)))
	assert.Len(t, broken.got, 1)
	assert.Len(t, ok.got, 1)
}
