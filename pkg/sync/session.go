package sync

import "github.com/hearthware/stovetop/pkg/types"

// SessionRef is a session-scoped view of the context's envelope. It is
// the accessor the timer engine mutates timers through; every call runs
// a full envelope read-patch-write plus broadcast.
type SessionRef struct {
	c   *Context
	key string
}

// Session returns the accessor for one creation session.
func (c *Context) Session(key string) *SessionRef {
	return &SessionRef{c: c, key: key}
}

// Key returns the session key.
func (s *SessionRef) Key() string {
	return s.key
}

// SessionState returns a deep copy of the current session state.
func (s *SessionRef) SessionState() *types.SessionState {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.env.Session(s.key).Clone()
}

// AddTimer appends a timer to the session's ordered set.
func (s *SessionRef) AddTimer(t *types.Timer) {
	s.c.Mutate(func(env *types.Envelope) {
		sess := env.Session(s.key)
		if sess.FindTimer(t.ID) != nil {
			return
		}
		sess.Timers = append(sess.Timers, t.Clone())
	})
}

// UpdateTimer applies patch to the persisted record. No-op on an
// unknown id.
func (s *SessionRef) UpdateTimer(id string, patch func(*types.Timer)) {
	s.c.Mutate(func(env *types.Envelope) {
		if t := env.Session(s.key).FindTimer(id); t != nil {
			patch(t)
		}
	})
}

// RemoveTimer deletes the timer from the session.
func (s *SessionRef) RemoveTimer(id string) {
	s.c.Mutate(func(env *types.Envelope) {
		env.Session(s.key).RemoveTimer(id)
	})
}
