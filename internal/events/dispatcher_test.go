package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesOnlyMatchingHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var ingested, created int
	d.Subscribe(EventTicketIngested, func(context.Context, Event) error {
		ingested++
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		created++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketIngested}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketIngested}))
	assert.Equal(t, 2, ingested)
	assert.Zero(t, created)
}

func TestPublishAbsorbsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	var after bool
	d.Subscribe(EventSLAThresholdCrossed, func(context.Context, Event) error {
		return errors.New("delivery endpoint down")
	})
	d.Subscribe(EventSLAThresholdCrossed, func(context.Context, Event) error {
		after = true
		return nil
	})

	// a failing subscriber never fails the publisher or starves later ones
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSLAThresholdCrossed}))
	assert.True(t, after)
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventIntegrationSyncError}))
}
