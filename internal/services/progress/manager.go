package progress

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// defaultIdleThreshold is how long a tracker may sit without updates
// before the manager evicts it
const defaultIdleThreshold = time.Hour

// Manager keeps the trackers of active jobs and evicts idle ones.
// Subscribers of an evicted tracker observe channel completion.
type Manager struct {
	trackers      map[string]*Tracker
	mu            sync.RWMutex
	idleThreshold time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	logger        arbor.ILogger
}

// NewManager creates a tracker manager. A non-positive idle threshold
// selects the one-hour default.
func NewManager(idleThreshold time.Duration, logger arbor.ILogger) *Manager {
	if idleThreshold <= 0 {
		idleThreshold = defaultIdleThreshold
	}

	m := &Manager{
		trackers:      make(map[string]*Tracker),
		idleThreshold: idleThreshold,
		stop:          make(chan struct{}),
		logger:        logger,
	}

	go m.evictionLoop()

	return m
}

// Create registers a new tracker for a job
func (m *Manager) Create(jobID string, totalURLs int) *Tracker {
	tracker := NewTracker(jobID, totalURLs, m.logger)

	m.mu.Lock()
	m.trackers[jobID] = tracker
	m.mu.Unlock()

	return tracker
}

// Get returns the tracker for a job, if registered
func (m *Manager) Get(jobID string) (*Tracker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tracker, ok := m.trackers[jobID]
	return tracker, ok
}

// Remove drops a tracker, cancelling it if still open
func (m *Manager) Remove(jobID string) {
	m.mu.Lock()
	tracker, ok := m.trackers[jobID]
	delete(m.trackers, jobID)
	m.mu.Unlock()

	if ok && !tracker.Closed() {
		tracker.Cancel("tracker removed")
	}
}

// Close stops the eviction loop and cancels all remaining trackers
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	for jobID, tracker := range m.trackers {
		if !tracker.Closed() {
			tracker.Cancel("manager shutdown")
		}
		delete(m.trackers, jobID)
	}
}

func (m *Manager) evictionLoop() {
	ticker := time.NewTicker(m.idleThreshold / 4)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleThreshold)

	m.mu.Lock()
	defer m.mu.Unlock()

	for jobID, tracker := range m.trackers {
		if tracker.LastUpdated().Before(cutoff) {
			if !tracker.Closed() {
				tracker.Cancel("idle eviction")
			}
			delete(m.trackers, jobID)
			m.logger.Debug().
				Str("job_id", jobID).
				Msg("Evicted idle progress tracker")
		}
	}
}
