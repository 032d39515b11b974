package form

import "sync"

// Hooks are the externally supplied callbacks the conversational sessions
// invoke on the form. The owner may replace them at any time; long-lived
// sessions must read them through the State on every use rather than capture
// them at session start.
type Hooks struct {
	// OnChange is called after every applied mutation with the merged record.
	OnChange func(Record)
	// Submit triggers the submission flow. It is the only operation besides
	// field updates the conversational core may perform.
	Submit func()
}

// State is the single mutable cell holding the current record and the
// current hooks. Every reader sees the freshest value; every writer goes
// through Apply so the Merge invariants always hold.
type State struct {
	mu     sync.Mutex
	record Record
	hooks  Hooks
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Snapshot returns the current record value.
func (s *State) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Apply merges partial into the record and returns the merged result. The
// OnChange hook, when set, observes the merged record after the lock is
// released.
func (s *State) Apply(partial map[string]string) Record {
	s.mu.Lock()
	s.record = Merge(s.record, partial)
	merged := s.record
	onChange := s.hooks.OnChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(merged)
	}
	return merged
}

// Reset clears the record back to empty. Used after a successful submission.
func (s *State) Reset() {
	s.mu.Lock()
	s.record = Record{}
	onChange := s.hooks.OnChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(Record{})
	}
}

// SetHooks replaces the callback set. Safe to call while sessions are live.
func (s *State) SetHooks(h Hooks) {
	s.mu.Lock()
	s.hooks = h
	s.mu.Unlock()
}

// TriggerSubmit invokes the current Submit hook, if any.
func (s *State) TriggerSubmit() {
	s.mu.Lock()
	submit := s.hooks.Submit
	s.mu.Unlock()

	if submit != nil {
		submit()
	}
}
