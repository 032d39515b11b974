package audio

import (
	"testing"
	"time"
)

func TestSpeakerPlayDoesNotBlockWhenQueueFull(t *testing.T) {
	t.Parallel()
	s := &Speaker{
		sched: NewScheduler(),
		feed:  newPCMFeed(),
		queue: make(chan speakerChunk, 2),
		done:  make(chan struct{}),
	}
	defer s.Close()

	pcm := make([]byte, PlaybackSampleRateHz/50*BytesPerSample)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 10; i++ {
			s.Play(pcm)
		}
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("Play blocked with a full queue and no consumer")
	}

	if got := len(s.queue); got != 2 {
		t.Fatalf("queued chunks = %d, want 2", got)
	}
	// Dropped chunks are marked complete, so only what can still play counts
	// as pending.
	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}
}
