// Package live implements the duplex voice channel: the websocket session
// speaking the live protocol and the voice lifecycle that ties microphone,
// speaker, and tool dispatch together.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wingservice/privateschool/pkg/assist"
	"github.com/wingservice/privateschool/pkg/audio"
	"github.com/wingservice/privateschool/pkg/live/protocol"
)

const defaultConnectTimeout = 15 * time.Second

// Event is a decoded server frame emitted by Session.Events().
type Event interface {
	eventType() string
}

type HelloAckEvent struct{ Ack protocol.ServerHelloAck }

func (e HelloAckEvent) eventType() string { return "hello_ack" }

// TranscriptDeltaEvent carries caption text for the assistant's speech.
type TranscriptDeltaEvent struct {
	Text    string
	IsFinal bool
}

func (e TranscriptDeltaEvent) eventType() string { return "transcript_delta" }

// AudioChunkEvent carries one decoded block of assistant speech.
type AudioChunkEvent struct {
	Seq  int64
	Data []byte
}

func (e AudioChunkEvent) eventType() string { return "audio_chunk" }

// ToolCallEvent asks the client to run one tool invocation.
type ToolCallEvent struct {
	ID   string
	Name string
	Args map[string]any
}

func (e ToolCallEvent) eventType() string { return "tool_call" }

type TurnCompleteEvent struct{}

func (e TurnCompleteEvent) eventType() string { return "turn_complete" }

type WarningEvent struct{ Warning protocol.ServerWarning }

func (e WarningEvent) eventType() string { return "warning" }

type ErrorEvent struct{ Error protocol.ServerError }

func (e ErrorEvent) eventType() string { return "error" }

type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// DialConfig configures one live session.
type DialConfig struct {
	URL    string
	APIKey string
	Model  string
	System string
	Tools  []assist.ToolDecl
}

// Session is one open live websocket connection. Events are delivered on a
// buffered channel; writes are serialized behind a mutex.
type Session struct {
	conn *websocket.Conn

	events  chan Event
	done    chan struct{}
	closing chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Dial opens a live session and completes the hello handshake. The returned
// session is already receiving events.
func Dial(ctx context.Context, cfg DialConfig) (*Session, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, assist.NewCredentialMissingError("voice API key is not set")
	}

	hello := protocol.ClientHello{
		Type:            "hello",
		ProtocolVersion: protocol.ProtocolVersion1,
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		System:          cfg.System,
		Tools:           wireTools(cfg.Tools),
		AudioIn: protocol.AudioFormat{
			Encoding:     protocol.EncodingPCM16,
			SampleRateHz: audio.CaptureSampleRateHz,
			Channels:     audio.Channels,
		},
		AudioOut: protocol.AudioFormat{
			Encoding:     protocol.EncodingPCM16,
			SampleRateHz: audio.PlaybackSampleRateHz,
			Channels:     audio.Channels,
		},
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, cfg.URL, nil)
	if err != nil {
		return nil, assist.NewTransportError("dial voice channel", err)
	}

	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, assist.NewTransportError("send hello", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, assist.NewTransportError("read hello_ack", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	msg, err := protocol.DecodeServerMessage(payload)
	if err != nil {
		_ = conn.Close()
		return nil, assist.NewProtocolError("decode hello_ack", err)
	}
	switch m := msg.(type) {
	case protocol.ServerHelloAck:
		s := &Session{
			conn:    conn,
			events:  make(chan Event, 256),
			done:    make(chan struct{}),
			closing: make(chan struct{}),
		}
		s.deliver(HelloAckEvent{Ack: m})
		go s.readLoop()
		return s, nil
	case protocol.ServerError:
		_ = conn.Close()
		return nil, assist.NewServerRejectedError(strings.TrimSpace(m.Message))
	default:
		_ = conn.Close()
		return nil, assist.NewProtocolError(fmt.Sprintf("unexpected first frame %T", msg), nil)
	}
}

// Events yields decoded server frames. The channel closes when the
// connection ends.
func (s *Session) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// SendAudioFrame ships one captured microphone block.
func (s *Session) SendAudioFrame(pcm []byte, seq int64) error {
	return s.sendJSON(protocol.ClientAudioFrame{
		Type:    "audio_frame",
		Seq:     seq,
		DataB64: base64.StdEncoding.EncodeToString(pcm),
	})
}

// SendToolResult answers one tool call, correlated by invocation id.
func (s *Session) SendToolResult(result assist.Result) error {
	return s.sendJSON(protocol.ClientToolResult{
		Type:   "tool_result",
		ID:     result.ID,
		Name:   result.Name,
		Output: result.Output,
	})
}

// EndSession requests a graceful shutdown.
func (s *Session) EndSession() error {
	return s.sendJSON(protocol.ClientControl{Type: "control", Op: "end_session"})
}

func (s *Session) sendJSON(v any) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the websocket and waits for the read loop to drain.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closing)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any. Blocks until the session
// has ended.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.closed.Load() {
				return
			}
			s.setErr(assist.NewTransportError("voice channel read", err))
			return
		}

		msg, err := protocol.DecodeServerMessage(data)
		if err != nil {
			s.setErr(assist.NewProtocolError("decode server frame", err))
			return
		}

		switch m := msg.(type) {
		case protocol.ServerHelloAck:
			s.emit(HelloAckEvent{Ack: m})
		case protocol.ServerTranscriptDelta:
			s.emit(TranscriptDeltaEvent{Text: m.Text, IsFinal: m.IsFinal})
		case protocol.ServerAudioChunk:
			pcm, decErr := base64.StdEncoding.DecodeString(m.DataB64)
			if decErr != nil {
				s.setErr(assist.NewProtocolError("decode audio chunk", decErr))
				return
			}
			s.emit(AudioChunkEvent{Seq: m.Seq, Data: pcm})
		case protocol.ServerToolCall:
			s.deliver(ToolCallEvent{ID: m.ID, Name: m.Name, Args: m.Args})
		case protocol.ServerTurnComplete:
			s.emit(TurnCompleteEvent{})
		case protocol.ServerWarning:
			s.emit(WarningEvent{Warning: m})
		case protocol.ServerError:
			s.deliver(ErrorEvent{Error: m})
			if m.Close {
				s.setErr(assist.NewServerRejectedError(strings.TrimSpace(m.Message)))
				return
			}
		case protocol.UnknownServerMessage:
			s.emit(UnknownEvent{Type: m.Type, Raw: m.Raw})
		}
	}
}

// emit is best-effort: audio, transcript, and informational frames are
// droppable when the consumer falls behind.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
	}
}

// deliver blocks until the event is consumed. Tool calls and errors must not
// be lost under backpressure; a tool call that never reaches the dispatcher
// would leave the invocation without its correlated result.
func (s *Session) deliver(event Event) {
	select {
	case s.events <- event:
	case <-s.closing:
	}
}

func wireTools(decls []assist.ToolDecl) []protocol.ToolDecl {
	out := make([]protocol.ToolDecl, 0, len(decls))
	for _, d := range decls {
		out = append(out, protocol.ToolDecl{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return out
}
