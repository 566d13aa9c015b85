package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishAfterCommit(t *testing.T) {
	broker := &mockBrokerPublisher{}
	p := NewPublisher(broker)

	p.PublishAfterCommit(context.Background(), "", &testEvent{name: "user.updated"})

	published := broker.getPublished()
	require.Len(t, published, 1)
	assert.Equal(t, "user.updated", published[0].RoutingKey)

	env, ok := published[0].Value.(*Envelope)
	require.True(t, ok)
	assert.Equal(t, "user.updated", env.EventName)
	assert.NotEmpty(t, env.EventID)
}

func TestPublisher_PublishAfterCommit_ExplicitRoutingKey(t *testing.T) {
	broker := &mockBrokerPublisher{}
	p := NewPublisher(broker)

	p.PublishAfterCommit(context.Background(), "account.lifecycle", &testEvent{name: "user.deleted"})

	published := broker.getPublished()
	require.Len(t, published, 1)
	assert.Equal(t, "account.lifecycle", published[0].RoutingKey)
}

func TestPublisher_PublishAfterCommit_CarriesTraceID(t *testing.T) {
	broker := &mockBrokerPublisher{}
	p := NewPublisher(broker)

	ctx := context.WithValue(context.Background(), "trace_id", "trace-42")
	p.PublishAfterCommit(ctx, "", &testEvent{name: "user.updated"})

	published := broker.getPublished()
	require.Len(t, published, 1)
	env := published[0].Value.(*Envelope)
	assert.Equal(t, "trace-42", env.TraceID)
}

func TestPublisher_PublishAfterCommit_SwallowsBrokerError(t *testing.T) {
	broker := &mockBrokerPublisher{err: errors.New("broker down")}
	p := NewPublisher(broker)

	// must not panic, must not surface the error
	assert.NotPanics(t, func() {
		p.PublishAfterCommit(context.Background(), "", &testEvent{name: "user.updated"})
	})
	assert.Len(t, broker.getPublished(), 0)
}

func TestPublisher_PublishAfterCommit_NilBroker(t *testing.T) {
	p := NewPublisher(nil)

	assert.NotPanics(t, func() {
		p.PublishAfterCommit(context.Background(), "", &testEvent{name: "user.updated"})
	})
}

func TestPublisher_PublishAfterCommit_NilEvent(t *testing.T) {
	broker := &mockBrokerPublisher{}
	p := NewPublisher(broker)

	p.PublishAfterCommit(context.Background(), "", nil)

	assert.Len(t, broker.getPublished(), 0)
}

func TestPublisher_PublishAfterCommit_SerializationFailure(t *testing.T) {
	broker := &mockBrokerPublisher{}
	p := NewPublisher(broker)

	// channels cannot marshal to JSON
	assert.NotPanics(t, func() {
		p.PublishAfterCommit(context.Background(), "", &unmarshalableEvent{})
	})
	assert.Len(t, broker.getPublished(), 0)
}

type unmarshalableEvent struct {
	Ch chan int `json:"ch"`
}

func (e *unmarshalableEvent) Name() string {
	return "broken.event"
}
