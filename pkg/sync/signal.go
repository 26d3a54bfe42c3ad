package sync

import (
	gosync "sync"

	"github.com/hearthware/stovetop/pkg/types"
)

// LocalSignal models the same-origin storage-change signal: contexts
// sharing one physical store register here, and every envelope write
// notifies all of them except the writer. The writer never observes its
// own signal, matching browser storage event semantics.
type LocalSignal struct {
	mu       gosync.RWMutex
	watchers map[string]func(*types.Envelope)
}

// NewLocalSignal creates an empty signal group
func NewLocalSignal() *LocalSignal {
	return &LocalSignal{
		watchers: make(map[string]func(*types.Envelope)),
	}
}

// Watch registers a context's change handler under its context id.
func (s *LocalSignal) Watch(id string, fn func(*types.Envelope)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[id] = fn
}

// Unwatch removes a context's handler.
func (s *LocalSignal) Unwatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, id)
}

// Publish notifies every watcher except the writer. Handlers run on
// the caller's goroutine; callers must not hold locks the handlers
// take.
func (s *LocalSignal) Publish(from string, env *types.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, fn := range s.watchers {
		if id == from {
			continue
		}
		fn(env)
	}
}
