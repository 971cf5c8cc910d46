package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestService_PublishReachesSubscribers(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	var received atomic.Int32
	_, err := service.Subscribe(models.EventURLProcessed, func(_ context.Context, event models.Event) error {
		assert.Equal(t, models.EventURLProcessed, event.Type)
		received.Add(1)
		return nil
	})
	require.NoError(t, err)

	err = service.Publish(context.Background(), models.NewEvent(models.EventURLProcessed, "job_1", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), received.Load(), "Publish waits for handlers, so the count is visible")
}

func TestService_PublishWaitsForSlowHandlers(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	var finished atomic.Bool
	_, err := service.Subscribe(models.EventCrawlStarted, func(context.Context, models.Event) error {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlStarted, "job_1", nil)))
	assert.True(t, finished.Load())
}

func TestService_SubscribeAllSeesEveryType(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	var mu sync.Mutex
	var seen []models.EventType
	_, err := service.SubscribeAll(func(_ context.Context, event models.Event) error {
		mu.Lock()
		seen = append(seen, event.Type)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlStarted, "job_1", nil)))
	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventURLProcessed, "job_1", nil)))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []models.EventType{models.EventCrawlStarted, models.EventURLProcessed}, seen)
}

func TestService_CancelStopsDelivery(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	var received atomic.Int32
	sub, err := service.Subscribe(models.EventCrawlCompleted, func(context.Context, models.Event) error {
		received.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlCompleted, "job_1", nil)))
	sub.Cancel()
	sub.Cancel() // Idempotent
	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlCompleted, "job_1", nil)))

	assert.Equal(t, int32(1), received.Load())
}

func TestService_HandlerErrorsCountedNotPropagated(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	_, err := service.Subscribe(models.EventCrawlError, func(context.Context, models.Event) error {
		return assert.AnError
	})
	require.NoError(t, err)

	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlError, "job_1", nil)))
	assert.Equal(t, uint64(1), service.HandlerFailures())
}

func TestService_SubscribeAfterCloseFails(t *testing.T) {
	service := NewService(testLogger())
	require.NoError(t, service.Close())

	_, err := service.Subscribe(models.EventCrawlStarted, func(context.Context, models.Event) error { return nil })
	assert.Error(t, err)
}

func TestService_NilHandlerRejected(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	_, err := service.Subscribe(models.EventCrawlStarted, nil)
	assert.Error(t, err)
}

func TestCompositeSubscription_CancelsAll(t *testing.T) {
	service := NewService(testLogger())
	defer service.Close()

	var received atomic.Int32
	handler := func(context.Context, models.Event) error {
		received.Add(1)
		return nil
	}
	subA, err := service.Subscribe(models.EventCrawlStarted, handler)
	require.NoError(t, err)
	subB, err := service.Subscribe(models.EventCrawlCompleted, handler)
	require.NoError(t, err)

	composite := NewCompositeSubscription(subA, subB)
	composite.Cancel()
	composite.Cancel() // Idempotent

	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlStarted, "job_1", nil)))
	require.NoError(t, service.Publish(context.Background(), models.NewEvent(models.EventCrawlCompleted, "job_1", nil)))
	assert.Equal(t, int32(0), received.Load())
}
