package service

import (
	"sync"
	"time"
)

// Run states.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunError    = "error"
)

// RunStatus is the progress of one embedding backfill run.
type RunStatus struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"` // api, schedule, cli
	Status      string     `json:"status"`  // running, complete, error
	Total       int        `json:"total"`
	Embedded    int        `json:"embedded"`
	Failed      int        `json:"failed"`
	Current     string     `json:"current_job,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the run has finished.
func (s RunStatus) Done() bool {
	return s.Status == RunComplete || s.Status == RunError
}

// DefaultRunRetention is how long finished runs stay queryable.
const DefaultRunRetention = 24 * time.Hour

// RunTracker keeps backfill runs in memory and fans updates out to
// subscribers. Finished runs are dropped once older than the retention.
type RunTracker struct {
	mu        sync.RWMutex
	runs      map[string]*RunStatus
	subs      map[string][]chan RunStatus // subscribers per run
	retention time.Duration
	now       func() time.Time
}

// TrackerOption configures a RunTracker.
type TrackerOption func(*RunTracker)

// WithRetention sets how long finished runs are kept.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *RunTracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// NewRunTracker creates a new run tracker.
func NewRunTracker(opts ...TrackerOption) *RunTracker {
	t := &RunTracker{
		runs:      make(map[string]*RunStatus),
		subs:      make(map[string][]chan RunStatus),
		retention: DefaultRunRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create registers a new running run and evicts expired finished ones.
func (t *RunTracker) Create(id, trigger string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	t.runs[id] = &RunStatus{
		ID:        id,
		Trigger:   trigger,
		Status:    RunRunning,
		Total:     total,
		StartedAt: t.now(),
	}
}

// prune must be called with t.mu held.
func (t *RunTracker) prune() {
	cutoff := t.now().Add(-t.retention)
	for id, run := range t.runs {
		if run.Done() && run.CompletedAt != nil && run.CompletedAt.Before(cutoff) {
			delete(t.runs, id)
		}
	}
}

// Len returns the number of runs held in memory.
func (t *RunTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}

// Update applies fn to the run and notifies subscribers. Sends happen under
// the lock so they cannot race Unsubscribe closing a channel; they never
// block, a full subscriber misses the update.
func (t *RunTracker) Update(id string, fn func(*RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[id]
	if !ok {
		return
	}
	fn(run)
	if run.Done() && run.CompletedAt == nil {
		now := t.now()
		run.CompletedAt = &now
	}
	snapshot := *run

	for _, ch := range t.subs[id] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Get returns a copy of the run status.
func (t *RunTracker) Get(id string) (*RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[id]
	if !ok {
		return nil, false
	}
	snapshot := *run
	return &snapshot, true
}

// Subscribe returns a channel that receives run updates.
func (t *RunTracker) Subscribe(id string) chan RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan RunStatus, 10)
	t.subs[id] = append(t.subs[id], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers and closes it.
func (t *RunTracker) Unsubscribe(id string, ch chan RunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[id]
	for i, s := range subs {
		if s == ch {
			t.subs[id] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(t.subs[id]) == 0 {
		delete(t.subs, id)
	}
	close(ch)
}
