package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

var (
	// Bucket names
	bucketEnvelopes = []byte("envelopes")
)

// BoltStore implements Store using BoltDB. Each envelope is one JSON
// value under its storage id, so every write replaces the whole
// document in a single transaction.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "stovetop.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEnvelopes); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketEnvelopes, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// GetEnvelope loads the envelope for the given storage id. Unparseable
// payloads are logged and replaced with an empty envelope rather than
// propagated.
func (s *BoltStore) GetEnvelope(id string) (*types.Envelope, error) {
	env := types.NewEnvelope(id)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEnvelopes)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, env); err != nil {
			logger := log.WithComponent("storage")
			logger.Warn().
				Err(err).
				Str("storage_id", id).
				Msg("corrupt envelope, falling back to empty state")
			metrics.EnvelopeCorruptTotal.Inc()
			*env = *types.NewEnvelope(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
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

// PutEnvelope writes the full envelope in one transaction (upsert).
func (s *BoltStore) PutEnvelope(env *types.Envelope) error {
	if env == nil || env.ID == "" {
		return fmt.Errorf("envelope must have a storage id")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEnvelopes)
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return b.Put([]byte(env.ID), data)
	})
	if err == nil {
		metrics.EnvelopeWritesTotal.Inc()
	}
	return err
}
