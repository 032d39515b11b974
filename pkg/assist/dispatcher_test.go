package assist

import (
	"strings"
	"testing"

	"github.com/wingservice/privateschool/pkg/form"
)

func TestDispatch_UpdateSchoolData(t *testing.T) {
	t.Parallel()
	state := form.NewState()
	d := NewDispatcher(state)

	res := d.Dispatch(Invocation{
		ID:   "call-1",
		Name: ToolUpdateSchoolData,
		Args: map[string]any{
			form.KeySchoolName: "Green Valley School",
			form.KeyLevel:      form.LevelUpperPrimary,
		},
	})

	if res.ID != "call-1" {
		t.Fatalf("result ID = %q, want call-1", res.ID)
	}
	if got := state.Snapshot().SchoolName; got != "Green Valley School" {
		t.Fatalf("SchoolName = %q, want Green Valley School", got)
	}
	if got := res.Output["next_missing_field"]; got != "school code" {
		t.Fatalf("next_missing_field = %v, want school code", got)
	}
}

func TestDispatch_UpdateIgnoresNonStringAndUnknownArgs(t *testing.T) {
	t.Parallel()
	state := form.NewState()
	d := NewDispatcher(state)

	d.Dispatch(Invocation{
		ID:   "call-2",
		Name: ToolUpdateSchoolData,
		Args: map[string]any{
			form.KeyPhone: 9876543210,
			"favourite":   "blue",
			form.KeyBlock: "North Block",
		},
	})

	rec := state.Snapshot()
	if rec.Phone != "" {
		t.Fatalf("Phone = %q, want empty (non-string arg)", rec.Phone)
	}
	if rec.Block != "North Block" {
		t.Fatalf("Block = %q, want North Block", rec.Block)
	}
}

func TestDispatch_SubmitReport(t *testing.T) {
	t.Parallel()
	state := form.NewState()
	submitted := false
	state.SetHooks(form.Hooks{Submit: func() { submitted = true }})

	res := NewDispatcher(state).Dispatch(Invocation{ID: "call-3", Name: ToolSubmitReport})
	if !submitted {
		t.Fatalf("Submit hook was not invoked")
	}
	if got := res.Output["status"]; got != "submission started" {
		t.Fatalf("status = %v, want submission started", got)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	t.Parallel()
	res := NewDispatcher(form.NewState()).Dispatch(Invocation{
		ID:   "call-4",
		Name: "delete_everything",
	})
	msg, ok := res.Output["error"].(string)
	if !ok || !strings.Contains(msg, "unsupported operation") {
		t.Fatalf("Output = %v, want unsupported operation error", res.Output)
	}
	if res.ID != "call-4" {
		t.Fatalf("result ID = %q, want call-4", res.ID)
	}
}

func TestDeclarations_LevelEnum(t *testing.T) {
	t.Parallel()
	decls := Declarations()
	if len(decls) != 2 {
		t.Fatalf("len(decls) = %d, want 2", len(decls))
	}
	if decls[0].Name != ToolUpdateSchoolData || decls[1].Name != ToolSubmitReport {
		t.Fatalf("decl names = %q, %q", decls[0].Name, decls[1].Name)
	}

	props := decls[0].Parameters["properties"].(map[string]any)
	if len(props) != len(form.FieldOrder) {
		t.Fatalf("len(properties) = %d, want %d", len(props), len(form.FieldOrder))
	}
	level := props[form.KeyLevel].(map[string]any)
	enum, ok := level["enum"].([]string)
	if !ok || len(enum) != 2 {
		t.Fatalf("level enum = %v, want two values", level["enum"])
	}
	for _, key := range []string{form.KeySchoolPhoto, form.KeyCertPrimary} {
		if _, found := props[key]; found {
			t.Fatalf("attachment key %q must not be a tool parameter", key)
		}
	}
}
