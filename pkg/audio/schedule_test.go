package audio

import (
	"testing"
	"time"
)

func TestScheduler_BackToBackStarts(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Now()

	durations := []time.Duration{
		120 * time.Millisecond,
		40 * time.Millisecond,
		300 * time.Millisecond,
	}

	var prevStart time.Time
	var prevDur time.Duration
	for i, d := range durations {
		_, start := s.Schedule(now, d)
		if i > 0 {
			if start.Before(prevStart) {
				t.Fatalf("chunk %d start %v before previous start %v", i, start, prevStart)
			}
			if want := prevStart.Add(prevDur); start.Before(want) {
				t.Fatalf("chunk %d start %v overlaps previous chunk ending %v", i, start, want)
			}
		}
		prevStart, prevDur = start, d
	}
}

func TestScheduler_CatchesUpToNow(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	base := time.Now()

	// First chunk finished long ago; the next one must start at "now", not
	// at the stale cursor.
	s.Schedule(base, 10*time.Millisecond)
	later := base.Add(5 * time.Second)
	_, start := s.Schedule(later, 10*time.Millisecond)
	if !start.Equal(later) {
		t.Fatalf("start = %v, want %v", start, later)
	}
}

func TestScheduler_PendingLifecycle(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	now := time.Now()

	id1, _ := s.Schedule(now, 10*time.Millisecond)
	id2, _ := s.Schedule(now, 10*time.Millisecond)
	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}

	s.Complete(id1)
	if got := s.Pending(); got != 1 {
		t.Fatalf("Pending after Complete = %d, want 1", got)
	}

	// Completing twice or completing an unknown id is a no-op.
	s.Complete(id1)
	s.Complete(999)
	if got := s.Pending(); got != 1 {
		t.Fatalf("Pending after duplicate Complete = %d, want 1", got)
	}

	s.Reset()
	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending after Reset = %d, want 0", got)
	}
	_ = id2
}

func TestScheduler_ResetClearsCursor(t *testing.T) {
	t.Parallel()
	s := NewScheduler()
	base := time.Now()
	s.Schedule(base, time.Hour)
	s.Reset()

	_, start := s.Schedule(base, time.Millisecond)
	if !start.Equal(base) {
		t.Fatalf("start after Reset = %v, want %v", start, base)
	}
}
