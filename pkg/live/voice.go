package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/wingservice/privateschool/pkg/assist"
	"github.com/wingservice/privateschool/pkg/audio"
	"github.com/wingservice/privateschool/pkg/form"
)

// VoiceState is the lifecycle phase of a voice session.
type VoiceState string

const (
	StateIdle       VoiceState = "idle"
	StateConnecting VoiceState = "connecting"
	StateOpen       VoiceState = "open"
	StateClosing    VoiceState = "closing"
)

// captionLimit caps the rolling caption buffer. Once it would exceed this
// many runes the buffer restarts from the incoming delta.
const captionLimit = 600

// Capture is the microphone surface the voice session manages.
type Capture interface {
	Close()
}

// Player is the playback surface the voice session manages.
type Player interface {
	Play(pcm []byte)
	Close()
}

// VoiceConfig configures a voice session.
type VoiceConfig struct {
	URL    string
	APIKey string
	Model  string
	State  *form.State
	Logger *slog.Logger

	// OnState observes every lifecycle transition.
	OnState func(VoiceState)
	// OnCaption observes the rolling caption buffer after every delta.
	OnCaption func(string)
	// OnError observes categorized failures, including mid-session ones.
	OnError func(*assist.Error)

	// Device openers, replaceable in tests. Nil means the real hardware.
	OpenCapture func(onBlock func([]byte)) (Capture, error)
	OpenSpeaker func() (Player, error)
}

// Voice is the duplex voice lifecycle. One Voice toggles through
// idle, connecting, open, closing and back to idle; Start and Stop are safe
// to call from any goroutine at any phase.
type Voice struct {
	cfg        VoiceConfig
	dispatcher *assist.Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	state   VoiceState
	capture Capture
	speaker Player

	session atomic.Pointer[Session]
	seq     atomic.Int64

	caption string
}

// NewVoice returns an idle voice lifecycle.
func NewVoice(cfg VoiceConfig) *Voice {
	if cfg.OpenCapture == nil {
		cfg.OpenCapture = func(onBlock func([]byte)) (Capture, error) {
			return audio.OpenCapture(onBlock)
		}
	}
	if cfg.OpenSpeaker == nil {
		cfg.OpenSpeaker = func() (Player, error) {
			return audio.OpenSpeaker()
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		cfg:        cfg,
		dispatcher: assist.NewDispatcher(cfg.State),
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the current lifecycle phase.
func (v *Voice) State() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Toggle starts the session when idle and stops it otherwise. This is the
// single entry point a start/stop button maps to.
func (v *Voice) Toggle(ctx context.Context) error {
	if v.State() == StateIdle {
		return v.Start(ctx)
	}
	v.Stop()
	return nil
}

// Start brings the session up: credential check, then devices, then the
// live channel. Any failure tears down what was opened and lands back in
// idle with a categorized error. The lock is held for the whole sequence,
// so a concurrent Stop waits for the connect to resolve rather than racing
// it.
func (v *Voice) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateIdle {
		return nil
	}
	v.setStateLocked(StateConnecting)

	if v.cfg.APIKey == "" {
		return v.abortLocked(assist.NewCredentialMissingError("voice API key is not set"))
	}

	capture, err := v.cfg.OpenCapture(v.onMicBlock)
	if err != nil {
		if errors.Is(err, audio.ErrBackendUnavailable) {
			return v.abortLocked(assist.NewDeviceUnsupportedError("no audio capture available", err))
		}
		return v.abortLocked(assist.NewPermissionDeniedError("microphone access failed", err))
	}
	v.capture = capture

	speaker, err := v.cfg.OpenSpeaker()
	if err != nil {
		v.teardownLocked()
		return v.abortLocked(assist.NewDeviceUnsupportedError("no audio playback available", err))
	}
	v.speaker = speaker

	session, err := Dial(ctx, DialConfig{
		URL:    v.cfg.URL,
		APIKey: v.cfg.APIKey,
		Model:  v.cfg.Model,
		System: assist.LiveInstruction(v.cfg.State.Snapshot()),
		Tools:  assist.Declarations(),
	})
	if err != nil {
		v.teardownLocked()
		var aerr *assist.Error
		if !errors.As(err, &aerr) {
			aerr = assist.NewTransportError("open voice channel", err)
		}
		return v.abortLocked(aerr)
	}

	v.session.Store(session)
	v.caption = ""
	v.seq.Store(0)
	v.setStateLocked(StateOpen)
	go v.eventLoop(session)
	return nil
}

// Stop tears the session down. Safe to call in any phase and from any
// goroutine; calling it twice is a no-op. Teardown failures are swallowed.
func (v *Voice) Stop() {
	v.mu.Lock()
	if v.state == StateIdle || v.state == StateClosing {
		v.mu.Unlock()
		return
	}
	v.setStateLocked(StateClosing)
	session := v.session.Swap(nil)
	v.teardownLocked()
	v.mu.Unlock()

	if session != nil {
		_ = session.EndSession()
		_ = session.Close()
	}

	v.mu.Lock()
	v.setStateLocked(StateIdle)
	v.mu.Unlock()
}

// onMicBlock ships one captured block. Fire and forget: a send failure is
// surfaced by the read loop, not here, and blocks arriving during teardown
// are dropped.
func (v *Voice) onMicBlock(pcm []byte) {
	session := v.session.Load()
	if session == nil {
		return
	}
	_ = session.SendAudioFrame(pcm, v.seq.Add(1))
}

func (v *Voice) eventLoop(session *Session) {
	for event := range session.Events() {
		switch e := event.(type) {
		case TranscriptDeltaEvent:
			v.appendCaption(e.Text)
		case AudioChunkEvent:
			v.mu.Lock()
			speaker := v.speaker
			v.mu.Unlock()
			if speaker != nil {
				speaker.Play(e.Data)
			}
		case ToolCallEvent:
			result := v.dispatcher.Dispatch(assist.Invocation{
				ID:   e.ID,
				Name: e.Name,
				Args: e.Args,
			})
			if err := session.SendToolResult(result); err != nil {
				v.logger.Warn("send tool result", "tool", e.Name, "error", err)
			}
		case WarningEvent:
			v.logger.Warn("voice channel warning", "code", e.Warning.Code, "message", e.Warning.Message)
		case ErrorEvent:
			v.logger.Error("voice channel error", "code", e.Error.Code, "message", e.Error.Message)
		}
	}

	if err := session.Err(); err != nil {
		var aerr *assist.Error
		if !errors.As(err, &aerr) {
			aerr = assist.NewTransportError("voice session ended", err)
		}
		if v.State() != StateClosing && v.cfg.OnError != nil {
			v.cfg.OnError(aerr)
		}
	}
	v.Stop()
}

func (v *Voice) appendCaption(text string) {
	v.mu.Lock()
	if len([]rune(v.caption))+len([]rune(text)) > captionLimit {
		v.caption = text
	} else {
		v.caption += text
	}
	caption := v.caption
	onCaption := v.cfg.OnCaption
	v.mu.Unlock()

	if onCaption != nil {
		onCaption(caption)
	}
}

// abortLocked lands the session back in idle and reports err.
func (v *Voice) abortLocked(err *assist.Error) error {
	v.logger.Error("voice session start failed", "kind", err.Kind, "error", err)
	v.setStateLocked(StateIdle)
	if v.cfg.OnError != nil {
		v.cfg.OnError(err)
	}
	return err
}

// teardownLocked releases devices. Idempotent.
func (v *Voice) teardownLocked() {
	if v.capture != nil {
		v.capture.Close()
		v.capture = nil
	}
	if v.speaker != nil {
		v.speaker.Close()
		v.speaker = nil
	}
}

func (v *Voice) setStateLocked(s VoiceState) {
	v.state = s
	if v.cfg.OnState != nil {
		v.cfg.OnState(s)
	}
}
