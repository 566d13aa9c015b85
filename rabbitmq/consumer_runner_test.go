package rabbitmq_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOMKZ/go-aegis-framework/rabbitmq"
	"github.com/KOMKZ/go-aegis-framework/testutil"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerRunner_StartAndStop(t *testing.T) {
	script := &testutil.DialScript{}
	m := newTestManager(t, testConfig(), script)
	require.NoError(t, m.Connect(context.Background()))

	var handled atomic.Int64
	handler := rabbitmq.NewConsumerHandlerFunc("user-events", "orders.user-events", []string{"user.*"},
		func(ctx context.Context, msg *amqp091.Delivery) error {
			handled.Add(1)
			return nil
		})

	runner := rabbitmq.NewConsumerRunner(m, handler, rabbitmq.ConsumerRunnerConfig{})
	require.NoError(t, runner.Start(context.Background()))
	assert.True(t, runner.IsRunning())
	assert.NotNil(t, m.GetConsumer("user-events"))

	// deliveries flow through the handler
	channels := script.Conn.Channels()
	require.Len(t, channels, 1)
	ack := &testutil.FakeAcknowledger{}
	channels[0].Deliver(testutil.NewDelivery(ack, 1, "user.updated", []byte(`{}`)))

	assert.Eventually(t, func() bool {
		return handled.Load() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, runner.Stop())
	assert.False(t, runner.IsRunning())
	assert.True(t, channels[0].IsClosed())
}

func TestConsumerRunner_MultipleWorkers(t *testing.T) {
	script := &testutil.DialScript{}
	m := newTestManager(t, testConfig(), script)
	require.NoError(t, m.Connect(context.Background()))

	handler := rabbitmq.NewConsumerHandlerFunc("bulk", "orders.bulk", []string{"order.*"},
		func(ctx context.Context, msg *amqp091.Delivery) error { return nil })

	runner := rabbitmq.NewConsumerRunner(m, handler, rabbitmq.ConsumerRunnerConfig{Workers: 3})
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	// each worker gets its own consumer and channel
	assert.NotNil(t, m.GetConsumer("bulk-worker-1"))
	assert.NotNil(t, m.GetConsumer("bulk-worker-2"))
	assert.NotNil(t, m.GetConsumer("bulk-worker-3"))
	assert.Len(t, script.Conn.Channels(), 3)
}

func TestConsumerRunner_StartTwice(t *testing.T) {
	script := &testutil.DialScript{}
	m := newTestManager(t, testConfig(), script)
	require.NoError(t, m.Connect(context.Background()))

	handler := rabbitmq.NewConsumerHandlerFunc("once", "q", []string{"a.*"},
		func(ctx context.Context, msg *amqp091.Delivery) error { return nil })

	runner := rabbitmq.NewConsumerRunner(m, handler, rabbitmq.ConsumerRunnerConfig{})
	require.NoError(t, runner.Start(context.Background()))
	defer runner.Stop()

	err := runner.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestConsumerRunner_RunStopsOnContextCancel(t *testing.T) {
	script := &testutil.DialScript{}
	m := newTestManager(t, testConfig(), script)
	require.NoError(t, m.Connect(context.Background()))

	handler := rabbitmq.NewConsumerHandlerFunc("ctx-bound", "q", []string{"a.*"},
		func(ctx context.Context, msg *amqp091.Delivery) error { return nil })

	runner := rabbitmq.NewConsumerRunner(m, handler, rabbitmq.ConsumerRunnerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on context cancellation")
	}
	assert.False(t, runner.IsRunning())
}

func TestConsumerRunnerConfig_Defaults(t *testing.T) {
	script := &testutil.DialScript{}
	m := newTestManager(t, testConfig(), script)
	require.NoError(t, m.Connect(context.Background()))

	handler := rabbitmq.NewConsumerHandlerFunc("defaults", "q", []string{"a.*"},
		func(ctx context.Context, msg *amqp091.Delivery) error { return nil })

	runner := rabbitmq.NewConsumerRunner(m, handler, rabbitmq.ConsumerRunnerConfig{})
	assert.Equal(t, 1, runner.GetConfig().Workers)
}
