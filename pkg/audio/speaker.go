package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// otoContext returns the process-wide playback context. The oto backend
// permits a single context per process, so the context outlives sessions;
// players are still opened and closed per session.
func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   PlaybackSampleRateHz,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("init speaker: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Speaker plays decoded PCM chunks gaplessly. Each chunk goes through the
// Scheduler, so chunks arriving in bursts still start back-to-back and a
// starved stream resumes at "now" rather than rushing to catch up.
type Speaker struct {
	sched *Scheduler
	feed  *pcmFeed
	queue chan speakerChunk
	done  chan struct{}

	closeOnce sync.Once
}

type speakerChunk struct {
	id    int64
	start time.Time
	pcm   []byte
}

// OpenSpeaker acquires a playback player for one session.
func OpenSpeaker() (*Speaker, error) {
	ctx, err := otoContext()
	if err != nil {
		return nil, err
	}

	s := &Speaker{
		sched: NewScheduler(),
		feed:  newPCMFeed(),
		queue: make(chan speakerChunk, 64),
		done:  make(chan struct{}),
	}
	s.feed.player = ctx.NewPlayer(s.feed)
	go s.run()
	return s, nil
}

// Play schedules one decoded chunk for playback. It never blocks: when the
// queue is full the oldest queued chunk is dropped so a burst of audio cannot
// stall the caller's event loop.
func (s *Speaker) Play(pcm []byte) {
	if s == nil || len(pcm) == 0 {
		return
	}
	id, start := s.sched.Schedule(time.Now(), Duration(len(pcm), PlaybackSampleRateHz))
	chunk := speakerChunk{id: id, start: start, pcm: pcm}
	for {
		select {
		case s.queue <- chunk:
			return
		case <-s.done:
			s.sched.Complete(id)
			return
		default:
		}
		select {
		case dropped := <-s.queue:
			s.sched.Complete(dropped.id)
		default:
		}
	}
}

// Pending reports how many scheduled chunks have not finished playing.
func (s *Speaker) Pending() int {
	if s == nil {
		return 0
	}
	return s.sched.Pending()
}

func (s *Speaker) run() {
	for {
		select {
		case <-s.done:
			return
		case chunk := <-s.queue:
			if wait := time.Until(chunk.start); wait > 0 {
				select {
				case <-time.After(wait):
				case <-s.done:
					return
				}
			}
			s.feed.Write(chunk.pcm)
			d := Duration(len(chunk.pcm), PlaybackSampleRateHz)
			time.AfterFunc(d, func() { s.sched.Complete(chunk.id) })
		}
	}
}

// Close stops playback, drops pending chunks, and releases the player.
// Idempotent; teardown failures are swallowed.
func (s *Speaker) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.sched.Reset()
		s.feed.Close()
	})
}

// pcmFeed is the byte bridge between scheduled chunks and the oto player.
// The player pulls through Read; Write appends and starts playback on the
// first chunk.
type pcmFeed struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	playing bool
	closed  bool
	player  *oto.Player
}

func newPCMFeed() *pcmFeed {
	f := &pcmFeed{buf: make([]byte, 0, PlaybackSampleRateHz*BytesPerSample)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *pcmFeed) Write(pcm []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.buf = append(f.buf, pcm...)
	if !f.playing && f.player != nil {
		f.playing = true
		f.player.Play()
	}
	f.cond.Signal()
}

func (f *pcmFeed) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.buf) == 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed && len(f.buf) == 0 {
		// Feed silence so the player drains instead of erroring.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *pcmFeed) Close() {
	f.mu.Lock()
	f.closed = true
	f.buf = nil
	player := f.player
	f.player = nil
	f.cond.Broadcast()
	f.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}
}
