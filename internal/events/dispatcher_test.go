package events

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublish_RunsAllSubscribers(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop())
	var calls atomic.Int32
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls.Add(1)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls.Add(1)
		return nil
	})
	d.Subscribe(EventMessageSent, func(context.Context, Event) error {
		t.Error("wrong event type delivered")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	d.(Waiter).Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestPublish_NoSubscribersIsANoOp(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop())
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserReviewed}))
	d.(Waiter).Wait()
}

func TestPublish_PanicInOneHandlerDoesNotStarveOthers(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop())
	var survived atomic.Bool
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		survived.Store(true)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketDeleted}))
	d.(Waiter).Wait()
	assert.True(t, survived.Load())
}

func TestPublish_HandlerErrorIsSwallowed(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop())
	d.Subscribe(EventMemberAdded, func(context.Context, Event) error {
		return assert.AnError
	})
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventMemberAdded}))
	d.(Waiter).Wait()
}
