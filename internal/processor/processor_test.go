package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gateway "github.com/nimasrn/laser/internal/gateways"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notifierQueueConfig() queue.QueueConfig {
	return queue.QueueConfig{
		Name:              "offer-events",
		ConsumerGroup:     "notifier",
		ConsumerName:      "notifier",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (c *countingProcessor) Process(ctx context.Context, msg *queue.Message) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingProcessor) GetType() string { return "counting" }

func TestNewNotifierService_RequiresProcessor(t *testing.T) {
	_, adapter := setupTestRedis(t)
	_, err := NewNotifierService(adapter, nil, NotifierConfig{Queue: notifierQueueConfig()})
	assert.Error(t, err)
}

func TestNotifierService_DeliversOfferEvents(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	users := &MockUserLookup{}
	pusher := &MockPusher{}
	users.On("Get", mock.Anything, int64(7)).Return(&model.UserApplication{ID: 7, PushToken: "tok-7"}, nil)
	pusher.On("Send", mock.Anything, mock.Anything).Return(&gateway.PushResponse{Status: gateway.StatusSent}, nil)

	proc := NewOfferNotificationProcessor(users, pusher, NewIdempotencyService(adapter, DefaultIdempotencyConfig()))
	svc, err := NewNotifierService(adapter, proc, NotifierConfig{
		Queue:     notifierQueueConfig(),
		Consumers: 2,
		Workers:   4,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	publisher, err := queue.NewQueue(adapter, notifierQueueConfig())
	require.NoError(t, err)
	for _, id := range []string{"evt-a", "evt-b", "evt-c"} {
		_, err := publisher.PublishJSON(ctx, proposedEvent(id), map[string]string{"type": "offer.proposed"})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return svc.Metrics().Snapshot().Processed == 3
	}, 3*time.Second, 20*time.Millisecond)
	svc.Stop()

	pusher.AssertNumberOfCalls(t, "Send", 3)

	stats, err := publisher.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingMessages)
}

func TestNotifierService_FailedEventStaysPending(t *testing.T) {
	_, adapter := setupTestRedis(t)
	ctx := context.Background()

	proc := &countingProcessor{err: errors.New("push provider down")}
	svc, err := NewNotifierService(adapter, proc, NotifierConfig{Queue: notifierQueueConfig(), Workers: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	publisher, err := queue.NewQueue(adapter, notifierQueueConfig())
	require.NoError(t, err)
	_, err = publisher.PublishJSON(ctx, proposedEvent("evt-f"), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return svc.Metrics().Snapshot().Failed == 1
	}, 3*time.Second, 20*time.Millisecond)
	svc.Stop()

	stats, err := publisher.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingMessages)
	assert.Equal(t, int32(1), proc.calls.Load())
}

func TestServiceMetrics(t *testing.T) {
	m := NewServiceMetrics()
	m.RecordSuccess(10 * time.Millisecond)
	m.RecordSuccess(30 * time.Millisecond)
	m.RecordFailure()

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Processed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, 20*time.Millisecond, s.AvgDuration)

	m.Reset()
	s = m.Snapshot()
	assert.Zero(t, s.Processed)
	assert.Zero(t, s.AvgDuration)
}
