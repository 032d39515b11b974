package assist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/wingservice/privateschool/pkg/form"
)

const (
	// DefaultChatModel is the model used when none is configured.
	DefaultChatModel = "gemini-2.0-flash"

	chatRequestTimeout = 90 * time.Second

	// maxToolRounds bounds the call-respond loop within one user turn so a
	// model stuck emitting tool calls cannot spin forever.
	maxToolRounds = 8
)

// Turn is one assistant-side chat entry produced by Send.
type Turn struct {
	Role string // "assistant" or "status"
	Text string
}

// ChatConfig configures a turn-based chat session.
type ChatConfig struct {
	APIKey string
	Model  string
	State  *form.State
	Logger *slog.Logger
}

// Chat is a turn-based conversational session. Each Send replays the full
// history, so the remote end needs no session affinity. Failures never reach
// the caller as errors; they degrade into apology turns.
type Chat struct {
	client     *genai.Client
	model      string
	dispatcher *Dispatcher
	state      *form.State
	logger     *slog.Logger
	history    []*genai.Content
}

// NewChat opens a chat session. It fails only on a missing credential or a
// client construction error; everything after that degrades per turn.
func NewChat(ctx context.Context, cfg ChatConfig) (*Chat, error) {
	if cfg.APIKey == "" {
		return nil, NewCredentialMissingError("assistant API key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, NewTransportError("create assistant client", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Chat{
		client:     client,
		model:      model,
		dispatcher: NewDispatcher(cfg.State),
		state:      cfg.State,
		logger:     logger,
	}, nil
}

// Send submits one user turn, resolves any tool calls the model makes, and
// returns the assistant turns to display. An optional image rides along as
// inline data. Transport and timeout failures come back as apology turns,
// never as errors.
func (c *Chat) Send(ctx context.Context, text string, image []byte, imageMIME string) []Turn {
	parts := []*genai.Part{genai.NewPartFromText(text)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, imageMIME))
	}
	baseLen := len(c.history)
	c.history = append(c.history, genai.NewContentFromParts(parts, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ChatInstruction(c.state.Snapshot()), genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: chatDeclarations()},
		},
	}

	var turns []Turn
	for round := 0; round < maxToolRounds; round++ {
		reqCtx, cancel := context.WithTimeout(ctx, chatRequestTimeout)
		resp, err := c.client.Models.GenerateContent(reqCtx, c.model, c.history, config)
		cancel()
		if err != nil {
			// Roll back the whole turn so a retry replays clean history.
			c.history = c.history[:baseLen]
			return c.apology(err)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			c.history = c.history[:baseLen]
			return c.apology(NewProtocolError("assistant returned no reply", nil))
		}
		content := resp.Candidates[0].Content
		c.history = append(c.history, content)

		calls := functionCalls(content)
		for _, part := range content.Parts {
			if part.Text != "" {
				turns = append(turns, c.renderText(part.Text)...)
			}
		}
		if len(calls) == 0 {
			return turns
		}

		responseParts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result := c.dispatcher.Dispatch(Invocation{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Args,
			})
			turns = append(turns, statusTurn(result))
			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       result.ID,
					Name:     result.Name,
					Response: result.Output,
				},
			})
		}
		c.history = append(c.history, genai.NewContentFromParts(responseParts, genai.RoleUser))
	}
	return turns
}

// renderText strips the support sentinel and, when present, appends the
// support line as its own turn.
func (c *Chat) renderText(text string) []Turn {
	turns := []Turn{}
	if strings.Contains(text, SupportSentinel) {
		cleaned := strings.TrimSpace(strings.ReplaceAll(text, SupportSentinel, ""))
		if cleaned != "" {
			turns = append(turns, Turn{Role: "assistant", Text: cleaned})
		}
		turns = append(turns, Turn{Role: "assistant", Text: SupportLine})
		return turns
	}
	return append(turns, Turn{Role: "assistant", Text: text})
}

func (c *Chat) apology(err error) []Turn {
	var aerr *Error
	if !errors.As(err, &aerr) {
		if errors.Is(err, context.DeadlineExceeded) {
			aerr = NewTimeoutError("assistant request timed out")
		} else {
			aerr = NewTransportError("assistant request failed", err)
		}
	}
	c.logger.Error("chat turn failed", "kind", aerr.Kind, "error", aerr)

	msg := "Sorry, I could not reach the assistant just now. Please try again."
	if aerr.Kind == ErrTimeout {
		msg = "Sorry, the assistant took too long to respond. Please try again."
	}
	return []Turn{
		{Role: "assistant", Text: msg},
		{Role: "assistant", Text: SupportLine},
	}
}

func statusTurn(r Result) Turn {
	switch r.Name {
	case ToolUpdateSchoolData:
		next, _ := r.Output["next_missing_field"].(string)
		if next == form.Ready {
			return Turn{Role: "status", Text: "Form updated. All fields are complete."}
		}
		return Turn{Role: "status", Text: "Form updated. Next: " + next + "."}
	case ToolSubmitReport:
		return Turn{Role: "status", Text: "Submitting the registration."}
	default:
		return Turn{Role: "status", Text: "The assistant requested an unsupported operation."}
	}
}

func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// chatDeclarations maps the neutral tool set onto the generative-API schema.
func chatDeclarations() []*genai.FunctionDeclaration {
	decls := Declarations()
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		}
		props, _ := d.Parameters["properties"].(map[string]any)
		for name, raw := range props {
			p, _ := raw.(map[string]any)
			field := &genai.Schema{Type: genai.TypeString}
			if desc, ok := p["description"].(string); ok {
				field.Description = desc
			}
			if enum, ok := p["enum"].([]string); ok {
				field.Enum = enum
			}
			schema.Properties[name] = field
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return out
}
