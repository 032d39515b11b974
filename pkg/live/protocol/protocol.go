// Package protocol defines the JSON frames of the duplex voice channel.
// Every frame is a text message with a type discriminator; audio rides as
// base64 payloads inside audio frames.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ProtocolVersion1 = "1"

	EncodingPCM16 = "pcm_s16le"
)

// DecodeError reports a malformed or unsupported frame.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// AudioFormat describes one direction of the live audio stream.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// ToolDecl mirrors the transport-neutral tool declaration on the wire.
type ToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ClientHello opens a session. System carries the instruction built from the
// form snapshot at session start.
type ClientHello struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	APIKey          string      `json:"api_key,omitempty"`
	Model           string      `json:"model"`
	System          string      `json:"system,omitempty"`
	Tools           []ToolDecl  `json:"tools,omitempty"`
	AudioIn         AudioFormat `json:"audio_in"`
	AudioOut        AudioFormat `json:"audio_out"`
}

// RedactedForLog returns the hello without the credential for logging.
func (h ClientHello) RedactedForLog() map[string]any {
	toolNames := make([]string, 0, len(h.Tools))
	for _, t := range h.Tools {
		toolNames = append(toolNames, t.Name)
	}
	return map[string]any{
		"type":             h.Type,
		"protocol_version": h.ProtocolVersion,
		"model":            h.Model,
		"audio_in":         h.AudioIn,
		"audio_out":        h.AudioOut,
		"has_api_key":      strings.TrimSpace(h.APIKey) != "",
		"tools":            toolNames,
	}
}

// ClientAudioFrame carries one captured microphone block.
type ClientAudioFrame struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	DataB64 string `json:"data_b64"`
}

// ClientToolResult answers one ServerToolCall; ID echoes the call id.
type ClientToolResult struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Output map[string]any `json:"output,omitempty"`
}

// ClientControl carries session-level operations.
type ClientControl struct {
	Type string `json:"type"`
	Op   string `json:"op"`
}

// DecodeClientMessage parses one client frame and validates it.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "hello":
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame", "")
		}
		if err := ValidateHello(msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "audio_frame":
		var msg ClientAudioFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio_frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("audio_frame.data_b64 is required", "data_b64")
		}
		return msg, nil
	case "tool_result":
		var msg ClientToolResult
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid tool_result", "")
		}
		if strings.TrimSpace(msg.ID) == "" {
			return nil, badRequest("tool_result.id is required", "id")
		}
		return msg, nil
	case "control":
		var msg ClientControl
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid control", "")
		}
		op := strings.TrimSpace(msg.Op)
		if op != "end_session" {
			return nil, badRequest("unsupported control operation", "op")
		}
		msg.Op = op
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ValidateHello checks the required hello fields.
func ValidateHello(msg ClientHello) error {
	if strings.TrimSpace(msg.ProtocolVersion) == "" {
		return badRequest("hello.protocol_version is required", "protocol_version")
	}
	if strings.TrimSpace(msg.Model) == "" {
		return badRequest("hello.model is required", "model")
	}
	for param, f := range map[string]AudioFormat{"audio_in": msg.AudioIn, "audio_out": msg.AudioOut} {
		if strings.TrimSpace(f.Encoding) == "" {
			return badRequest("hello."+param+".encoding is required", param+".encoding")
		}
		if f.SampleRateHz <= 0 {
			return badRequest("hello."+param+".sample_rate_hz must be > 0", param+".sample_rate_hz")
		}
		if f.Channels <= 0 {
			return badRequest("hello."+param+".channels must be > 0", param+".channels")
		}
	}
	return nil
}

// ServerHelloAck confirms the session and the negotiated audio shapes.
type ServerHelloAck struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	AudioIn         AudioFormat `json:"audio_in"`
	AudioOut        AudioFormat `json:"audio_out"`
}

// ServerTranscriptDelta streams caption text for the assistant's speech.
type ServerTranscriptDelta struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final,omitempty"`
}

// ServerAudioChunk carries one block of synthesized assistant speech.
type ServerAudioChunk struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq"`
	DataB64 string `json:"data_b64"`
}

// ServerToolCall asks the client to execute one tool invocation.
type ServerToolCall struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ServerTurnComplete marks the end of one assistant turn.
type ServerTurnComplete struct {
	Type string `json:"type"`
}

// ServerWarning is a non-fatal condition; the session continues.
type ServerWarning struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerError is fatal when Close is set.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Close   bool   `json:"close,omitempty"`
}

// UnknownServerMessage preserves frames this client version does not know.
type UnknownServerMessage struct {
	Type string
	Raw  json.RawMessage
}

// DecodeServerMessage parses one server frame. Unknown types decode into
// UnknownServerMessage so newer servers do not break older clients.
func DecodeServerMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode server frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("server frame missing type")
	}

	switch typ {
	case "hello_ack":
		var msg ServerHelloAck
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode hello_ack: %w", err)
		}
		return msg, nil
	case "transcript_delta":
		var msg ServerTranscriptDelta
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode transcript_delta: %w", err)
		}
		return msg, nil
	case "audio_chunk":
		var msg ServerAudioChunk
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode audio_chunk: %w", err)
		}
		return msg, nil
	case "tool_call":
		var msg ServerToolCall
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode tool_call: %w", err)
		}
		return msg, nil
	case "turn_complete":
		var msg ServerTurnComplete
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode turn_complete: %w", err)
		}
		return msg, nil
	case "warning":
		var msg ServerWarning
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode warning: %w", err)
		}
		return msg, nil
	case "error":
		var msg ServerError
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return msg, nil
	default:
		return UnknownServerMessage{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}
