package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func drain(t *testing.T, tracker *Tracker) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-tracker.Updates():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("updates channel never closed")
		}
	}
}

func TestTracker_CountersInvariant(t *testing.T) {
	tracker := NewTracker("job_1", 3, testLogger())

	tracker.StartURL("https://example.com/a")
	tracker.CompleteURL("https://example.com/a", 4, 1024, 50*time.Millisecond, 200, "text/html")
	tracker.FailURL("https://example.com/b", "NetworkPermanent", "http status 404", 404, 0)

	snap := tracker.Snapshot()
	assert.Equal(t, 3, snap.TotalURLs)
	assert.Equal(t, 2, snap.ProcessedURLs)
	assert.Equal(t, 1, snap.SuccessURLs)
	assert.Equal(t, 1, snap.FailedURLs)
	assert.Equal(t, snap.SuccessURLs+snap.FailedURLs, snap.ProcessedURLs)
	assert.Equal(t, 4, snap.TotalChunks)
	assert.Equal(t, 1, snap.StatusCounts[200])
	assert.Equal(t, 1, snap.StatusCounts[404])
	assert.Equal(t, 1, snap.ContentTypeCounts["text/html"])
	assert.Equal(t, 1, snap.ErrorTypeCounts["NetworkPermanent"])
	assert.Equal(t, 2, snap.DomainCounts["example.com"])
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "http status 404", snap.Errors[0].Message)
}

func TestTracker_ClosesWhenTotalReached(t *testing.T) {
	tracker := NewTracker("job_1", 2, testLogger())

	tracker.CompleteURL("https://example.com/a", 1, 10, time.Millisecond, 200, "text/html")
	assert.False(t, tracker.Closed())
	tracker.CompleteURL("https://example.com/b", 1, 10, time.Millisecond, 200, "text/html")
	assert.True(t, tracker.Closed())

	drain(t, tracker)
}

func TestTracker_AddTotalExtendsJob(t *testing.T) {
	tracker := NewTracker("job_1", 1, testLogger())

	tracker.AddTotal(2)
	tracker.CompleteURL("https://example.com/a", 0, 0, time.Millisecond, 200, "text/html")
	assert.False(t, tracker.Closed(), "discovered work keeps the job open")

	tracker.CompleteURL("https://example.com/b", 0, 0, time.Millisecond, 200, "text/html")
	tracker.FailURL("https://example.com/c", "Cancelled", "", 0, 0)
	assert.True(t, tracker.Closed())
}

func TestTracker_MutationsAfterCloseIgnored(t *testing.T) {
	tracker := NewTracker("job_1", 1, testLogger())
	tracker.Complete()

	tracker.CompleteURL("https://example.com/a", 1, 10, time.Millisecond, 200, "text/html")
	tracker.FailURL("https://example.com/b", "Internal", "", 0, 0)
	tracker.AddTotal(5)

	snap := tracker.Snapshot()
	assert.Equal(t, 0, snap.ProcessedURLs)
	assert.Equal(t, 1, snap.TotalURLs)
}

func TestTracker_CancelIsIdempotent(t *testing.T) {
	tracker := NewTracker("job_1", 10, testLogger())

	tracker.Cancel("shutdown")
	tracker.Cancel("shutdown again") // Must not panic on a closed channel
	tracker.Complete()

	snap := tracker.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "cancelled", snap.Errors[0].Type)
	drain(t, tracker)
}

func TestTracker_SnapshotIsDeepCopy(t *testing.T) {
	tracker := NewTracker("job_1", 2, testLogger())
	tracker.CompleteURL("https://example.com/a", 1, 10, time.Millisecond, 200, "text/html")

	snap := tracker.Snapshot()
	snap.DomainCounts["evil.example.com"] = 99
	snap.StatusCounts[500] = 99

	fresh := tracker.Snapshot()
	assert.NotContains(t, fresh.DomainCounts, "evil.example.com")
	assert.NotContains(t, fresh.StatusCounts, 500)
}

func TestTracker_ResponseTimeStats(t *testing.T) {
	tracker := NewTracker("job_1", 3, testLogger())

	tracker.CompleteURL("https://example.com/a", 0, 0, 10*time.Millisecond, 200, "text/html")
	tracker.CompleteURL("https://example.com/b", 0, 0, 30*time.Millisecond, 200, "text/html")

	snap := tracker.Snapshot()
	assert.Equal(t, 10*time.Millisecond, snap.ResponseTimes.Min)
	assert.Equal(t, 30*time.Millisecond, snap.ResponseTimes.Max)
	assert.Equal(t, 20*time.Millisecond, snap.ResponseTimes.Avg)
}

func TestManager_CreateGetRemove(t *testing.T) {
	manager := NewManager(time.Hour, testLogger())
	defer manager.Close()

	tracker := manager.Create("job_1", 5)
	got, ok := manager.Get("job_1")
	require.True(t, ok)
	assert.Same(t, tracker, got)

	manager.Remove("job_1")
	_, ok = manager.Get("job_1")
	assert.False(t, ok)
	assert.True(t, tracker.Closed(), "removing an open tracker cancels it")
}

func TestManager_CloseCancelsAll(t *testing.T) {
	manager := NewManager(time.Hour, testLogger())

	a := manager.Create("job_a", 1)
	b := manager.Create("job_b", 1)
	manager.Close()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}
