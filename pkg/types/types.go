package types

import "encoding/json"

// TimerStatus represents the lifecycle state of a timer
type TimerStatus string

const (
	TimerIdle      TimerStatus = "idle"
	TimerRunning   TimerStatus = "running"
	TimerPaused    TimerStatus = "paused"
	TimerCompleted TimerStatus = "completed"
	TimerAlarming  TimerStatus = "alarming"
)

// Timer is the persisted record of one countdown. Runtime resources
// (tick handles, audio playback) live in separate tables keyed by ID so
// this struct stays serializable.
type Timer struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	Duration  int         `json:"duration"`  // original length, whole seconds
	Remaining int         `json:"remaining"` // whole seconds left
	Status    TimerStatus `json:"status"`
	StepIndex *int        `json:"stepIndex,omitempty"` // recipe step association, opaque here
	IsActive  bool        `json:"isActive"`            // persisted running snapshot, drives restore
}

// Clone returns a deep copy of the timer.
func (t *Timer) Clone() *Timer {
	if t == nil {
		return nil
	}
	c := *t
	if t.StepIndex != nil {
		idx := *t.StepIndex
		c.StepIndex = &idx
	}
	return &c
}

// SessionState holds everything persisted for one creation session: the
// ordered timer set plus UI-adjacent blobs that round-trip through the
// same envelope but are opaque to the timer engine.
type SessionState struct {
	Timers    []*Timer        `json:"timers"`
	Image     json.RawMessage `json:"image,omitempty"`
	Checklist json.RawMessage `json:"checklist,omitempty"`
}

// FindTimer returns the timer with the given id, or nil.
func (s *SessionState) FindTimer(id string) *Timer {
	for _, t := range s.Timers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// RemoveTimer deletes the timer with the given id, preserving order.
func (s *SessionState) RemoveTimer(id string) {
	for i, t := range s.Timers {
		if t.ID == id {
			s.Timers = append(s.Timers[:i], s.Timers[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the session state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := &SessionState{
		Image:     append(json.RawMessage(nil), s.Image...),
		Checklist: append(json.RawMessage(nil), s.Checklist...),
	}
	for _, t := range s.Timers {
		c.Timers = append(c.Timers, t.Clone())
	}
	return c
}

// Envelope is the single top-level persisted document. The envelope is
// the only unit of atomic persistence: every mutation reads the full
// envelope, patches one session, and writes the full envelope back.
type Envelope struct {
	ID          string                   `json:"id"`
	Preferences map[string]any           `json:"preferences"`
	State       map[string]*SessionState `json:"state"`
}

// NewEnvelope returns an empty envelope for the given storage id.
func NewEnvelope(id string) *Envelope {
	return &Envelope{
		ID:          id,
		Preferences: map[string]any{},
		State:       map[string]*SessionState{},
	}
}

// Session returns the session state for the given key, creating an
// empty one on first reference.
func (e *Envelope) Session(key string) *SessionState {
	if e.State == nil {
		e.State = map[string]*SessionState{}
	}
	s, ok := e.State[key]
	if !ok {
		s = &SessionState{}
		e.State[key] = s
	}
	return s
}

// Clone returns a deep copy of the envelope. Preferences are copied via
// JSON round-trip since their shape is opaque.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	c := NewEnvelope(e.ID)
	if len(e.Preferences) > 0 {
		raw, err := json.Marshal(e.Preferences)
		if err == nil {
			_ = json.Unmarshal(raw, &c.Preferences)
		}
	}
	for key, s := range e.State {
		c.State[key] = s.Clone()
	}
	return c
}
