package assist

import (
	"fmt"

	"github.com/wingservice/privateschool/pkg/form"
)

// Tool names the model may invoke.
const (
	ToolUpdateSchoolData = "update_school_data"
	ToolSubmitReport     = "submit_report"
)

// Invocation is one tool call as surfaced by either session. ID correlates
// the eventual result with this specific call, never with the tool name.
type Invocation struct {
	ID   string
	Name string
	Args map[string]any
}

// Result is the response returned for one Invocation. ID echoes the
// invocation id.
type Result struct {
	ID     string
	Name   string
	Output map[string]any
}

// ToolDecl is a transport-neutral tool declaration. Both sessions advertise
// the same set; each transport maps it onto its own wire shape.
type ToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Declarations returns the tool set advertised to the model. Only the
// textual fields are writable through tools; attachments go through the
// form directly.
func Declarations() []ToolDecl {
	props := map[string]any{}
	for _, f := range form.FieldOrder {
		p := map[string]any{
			"type":        "string",
			"description": "The " + f.Label + " of the school.",
		}
		if f.Key == form.KeyLevel {
			p["enum"] = []string{form.LevelPrimary, form.LevelUpperPrimary}
		}
		props[f.Key] = p
	}

	return []ToolDecl{
		{
			Name: ToolUpdateSchoolData,
			Description: "Record one or more school registration fields the " +
				"user has provided. Pass only the fields mentioned in the " +
				"latest user turn.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
			},
		},
		{
			Name: ToolSubmitReport,
			Description: "Submit the completed registration. Call only after " +
				"every required field and attachment is present.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// Dispatcher routes tool invocations into the shared form state. It reads
// the state on every call, so hooks and record replaced mid-session are
// honored.
type Dispatcher struct {
	state *form.State
}

// NewDispatcher returns a Dispatcher bound to state.
func NewDispatcher(state *form.State) *Dispatcher {
	return &Dispatcher{state: state}
}

// Dispatch executes one invocation and returns its result. Unknown tools
// yield an explicit unsupported-operation result rather than an error; the
// model reads it and moves on.
func (d *Dispatcher) Dispatch(inv Invocation) Result {
	switch inv.Name {
	case ToolUpdateSchoolData:
		partial := make(map[string]string, len(inv.Args))
		for key, value := range inv.Args {
			s, ok := value.(string)
			if !ok || !form.KnownKey(key) {
				continue
			}
			partial[key] = s
		}
		merged := d.state.Apply(partial)
		return Result{
			ID:   inv.ID,
			Name: inv.Name,
			Output: map[string]any{
				"status":             "updated",
				"next_missing_field": form.NextMissingField(merged),
			},
		}

	case ToolSubmitReport:
		d.state.TriggerSubmit()
		return Result{
			ID:   inv.ID,
			Name: inv.Name,
			Output: map[string]any{
				"status": "submission started",
			},
		}

	default:
		return Result{
			ID:   inv.ID,
			Name: inv.Name,
			Output: map[string]any{
				"error": fmt.Sprintf("unsupported operation %q", inv.Name),
			},
		}
	}
}
