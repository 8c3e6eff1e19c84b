package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDelivery struct {
	data    []byte
	acked   bool
	nacked  bool
	requeue bool
}

func (d *fakeDelivery) Ack(bool) error { d.acked = true; return nil }

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked = true
	d.requeue = requeue
	return nil
}

func (d *fakeDelivery) body() []byte { return d.data }

func encode(t *testing.T, event RecipeEvent) []byte {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return b
}

func TestDispatch_AcksHandledEvent(t *testing.T) {
	sent := RecipeEvent{Type: RecipeCreated, RecipeID: 7, AuthorID: 3, Name: "Soup", OccurredAt: time.Now().UTC().Truncate(time.Second)}
	msg := &fakeDelivery{data: encode(t, sent)}

	var got RecipeEvent
	dispatch(context.Background(), msg, func(_ context.Context, e RecipeEvent) error {
		got = e
		return nil
	})

	assert.True(t, msg.acked)
	assert.False(t, msg.nacked)
	assert.Equal(t, sent.RecipeID, got.RecipeID)
	assert.True(t, sent.OccurredAt.Equal(got.OccurredAt))
}

func TestDispatch_DropsMalformedBody(t *testing.T) {
	msg := &fakeDelivery{data: []byte("{not json")}
	called := false

	dispatch(context.Background(), msg, func(context.Context, RecipeEvent) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, msg.nacked)
	assert.False(t, msg.requeue)
}

func TestDispatch_RequeuesOnHandlerError(t *testing.T) {
	msg := &fakeDelivery{data: encode(t, RecipeEvent{Type: RecipeDeleted, RecipeID: 1})}

	dispatch(context.Background(), msg, func(context.Context, RecipeEvent) error {
		return errors.New("database unavailable")
	})

	assert.False(t, msg.acked)
	assert.True(t, msg.nacked)
	assert.True(t, msg.requeue)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishRecipeEvent(context.Background(), RecipeEvent{Type: RecipeUpdated}))
}
