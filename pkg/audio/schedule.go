package audio

import (
	"sync"
	"time"
)

// Scheduler assigns gapless, overlap-free start times to decoded audio
// chunks that arrive at network-dictated intervals. A chunk starts at
// max(cursor, now); the cursor then advances by the chunk's duration, so
// consecutive chunks chain back-to-back and a stalled stream naturally
// catches back up to "now" instead of scheduling into the past.
type Scheduler struct {
	mu      sync.Mutex
	cursor  time.Time
	nextID  int64
	pending map[int64]struct{}
}

// NewScheduler returns a Scheduler with an unset cursor.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int64]struct{})}
}

// Schedule reserves a start time for a chunk of duration d observed at now.
// The returned id tracks the chunk in the pending set until Complete.
func (s *Scheduler) Schedule(now time.Time, d time.Duration) (id int64, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start = s.cursor
	if now.After(start) {
		start = now
	}
	s.cursor = start.Add(d)

	s.nextID++
	id = s.nextID
	s.pending[id] = struct{}{}
	return id, start
}

// Complete removes a finished chunk from the pending set. Unknown ids are
// ignored.
func (s *Scheduler) Complete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending returns the number of scheduled chunks that have not completed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Reset clears the cursor and drops every pending chunk. Called on session
// teardown so a later session starts from a clean timeline.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = time.Time{}
	s.pending = make(map[int64]struct{})
}
