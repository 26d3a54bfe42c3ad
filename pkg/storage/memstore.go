package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

// MemStore implements Store in memory. It is the capability fallback
// for environments with no usable persistence backend, and the default
// store in tests. Values are kept JSON-serialized so the round-trip
// semantics match BoltStore exactly.
type MemStore struct {
	mu        sync.RWMutex
	envelopes map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		envelopes: make(map[string][]byte),
	}
}

// Close is a no-op for the in-memory store
func (s *MemStore) Close() error {
	return nil
}

// GetEnvelope loads the envelope for the given storage id.
func (s *MemStore) GetEnvelope(id string) (*types.Envelope, error) {
	s.mu.RLock()
	data := s.envelopes[id]
	s.mu.RUnlock()

	env := types.NewEnvelope(id)
	if data == nil {
		return env, nil
	}
	if err := json.Unmarshal(data, env); err != nil {
		logger := log.WithComponent("storage")
		logger.Warn().
			Err(err).
			Str("storage_id", id).
			Msg("corrupt envelope, falling back to empty state")
		metrics.EnvelopeCorruptTotal.Inc()
		return types.NewEnvelope(id), nil
	}
	if env.ID == "" {
		env.ID = id
	}
	if env.Preferences == nil {
		env.Preferences = map[string]any{}
	}
	if env.State == nil {
		env.State = map[string]*types.SessionState{}
	}
	return env, nil
}

// PutEnvelope stores the full envelope (upsert).
func (s *MemStore) PutEnvelope(env *types.Envelope) error {
	if env == nil || env.ID == "" {
		return fmt.Errorf("envelope must have a storage id")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.envelopes[env.ID] = data
	s.mu.Unlock()

	metrics.EnvelopeWritesTotal.Inc()
	return nil
}

// Corrupt overwrites the stored payload for a storage id with invalid
// JSON. Test hook for the corruption fallback path.
func (s *MemStore) Corrupt(id string) {
	s.mu.Lock()
	s.envelopes[id] = []byte("{not json")
	s.mu.Unlock()
}
