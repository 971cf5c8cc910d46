package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/webflux/internal/models"
)

func record(url string, depth int) *models.URLRecord {
	return &models.URLRecord{URL: url, Depth: depth, AddedAt: time.Now()}
}

func TestFrontier_DepthOrdering(t *testing.T) {
	frontier := NewFrontier(0, 0)

	require.True(t, frontier.Push(record("https://example.com/deep", 2)))
	require.True(t, frontier.Push(record("https://example.com/shallow", 0)))
	require.True(t, frontier.Push(record("https://example.com/mid", 1)))

	ctx := context.Background()
	first, err := frontier.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Depth)

	second, err := frontier.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Depth)

	third, err := frontier.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Depth)
}

func TestFrontier_DeduplicatesNormalizedURLs(t *testing.T) {
	frontier := NewFrontier(0, 0)

	assert.True(t, frontier.Push(record("https://example.com/page", 0)))
	assert.False(t, frontier.Push(record("https://example.com/page", 0)), "exact duplicate")
	assert.False(t, frontier.Push(record("https://EXAMPLE.com/page#frag", 1)), "normalizes before dedup")
	assert.Equal(t, 1, frontier.Accepted())
}

func TestFrontier_DepthAndBudgetBounds(t *testing.T) {
	frontier := NewFrontier(1, 2)

	assert.True(t, frontier.Push(record("https://example.com/a", 0)))
	assert.False(t, frontier.Push(record("https://example.com/too-deep", 2)), "beyond max depth")
	assert.True(t, frontier.Push(record("https://example.com/b", 1)))
	assert.False(t, frontier.Push(record("https://example.com/c", 1)), "beyond URL budget")
	assert.Equal(t, 2, frontier.Accepted())
}

func TestFrontier_DrainsWhenIdle(t *testing.T) {
	frontier := NewFrontier(0, 0)
	require.True(t, frontier.Push(record("https://example.com/only", 0)))

	ctx := context.Background()
	popped, err := frontier.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, popped)

	done := make(chan struct{})
	go func() {
		// The in-flight record could still discover links, so this Pop
		// must block until Done is called
		record, err := frontier.Pop(ctx)
		assert.NoError(t, err)
		assert.Nil(t, record, "drained frontier returns nil")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Pop returned while a record was still outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	frontier.Done()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not observe the drain")
	}
}

func TestFrontier_PopHonorsCancellation(t *testing.T) {
	frontier := NewFrontier(0, 0)
	require.True(t, frontier.Push(record("https://example.com/only", 0)))
	_, err := frontier.Pop(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := frontier.Pop(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	frontier.Close() // Wake the waiter

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after cancellation")
	}
}

func TestFrontier_CloseDrainsWaiters(t *testing.T) {
	frontier := NewFrontier(0, 0)
	require.True(t, frontier.Push(record("https://example.com/only", 0)))
	_, err := frontier.Pop(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		record, err := frontier.Pop(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, record)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	frontier.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not observe Close")
	}

	assert.False(t, frontier.Push(record("https://example.com/late", 0)), "closed frontier rejects pushes")
}
