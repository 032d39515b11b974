package form

import "testing"

func TestState_ApplyMergesAndNotifies(t *testing.T) {
	t.Parallel()
	s := NewState()

	var seen []Record
	s.SetHooks(Hooks{OnChange: func(r Record) { seen = append(seen, r) }})

	merged := s.Apply(map[string]string{KeySchoolName: "GVPS"})
	if merged.SchoolName != "GVPS" {
		t.Fatalf("merged.SchoolName = %q, want GVPS", merged.SchoolName)
	}
	if len(seen) != 1 || seen[0].SchoolName != "GVPS" {
		t.Fatalf("OnChange saw %#v, want one record with SchoolName=GVPS", seen)
	}
	if got := s.Snapshot().SchoolName; got != "GVPS" {
		t.Fatalf("Snapshot().SchoolName = %q, want GVPS", got)
	}
}

func TestState_HooksAreReadFresh(t *testing.T) {
	t.Parallel()
	s := NewState()

	var firstCalls, secondCalls int
	s.SetHooks(Hooks{Submit: func() { firstCalls++ }})
	s.TriggerSubmit()

	// Replacing the hooks mid-session must redirect later calls, not the
	// ones captured earlier.
	s.SetHooks(Hooks{Submit: func() { secondCalls++ }})
	s.TriggerSubmit()

	if firstCalls != 1 || secondCalls != 1 {
		t.Fatalf("calls = (%d, %d), want (1, 1)", firstCalls, secondCalls)
	}
}

func TestState_ResetClearsRecord(t *testing.T) {
	t.Parallel()
	s := NewState()
	s.Apply(map[string]string{KeySchoolName: "GVPS", KeyDistrict: "Pune"})
	s.Reset()
	if got := s.Snapshot(); got != (Record{}) {
		t.Fatalf("Snapshot after Reset = %#v, want zero record", got)
	}
}

func TestState_ApplyEnforcesMergeInvariant(t *testing.T) {
	t.Parallel()
	s := NewState()
	s.Apply(map[string]string{
		KeyLevel:            LevelUpperPrimary,
		KeyCertUpperPrimary: "data:application/pdf;base64,AA==",
	})
	got := s.Apply(map[string]string{KeyLevel: LevelPrimary})
	if got.CertUpperPrimary != "" {
		t.Fatalf("CertUpperPrimary = %q, want empty after downgrade through State", got.CertUpperPrimary)
	}
}
