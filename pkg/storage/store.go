package storage

import (
	"github.com/hearthware/stovetop/pkg/types"
)

// Store defines the interface for envelope persistence.
//
// The envelope is the only unit of atomic persistence: there is no
// per-timer or per-session write path. GetEnvelope never fails on a
// missing or corrupt document; it degrades to an empty envelope so the
// subsystem keeps operating (corruption is logged, not propagated).
type Store interface {
	// GetEnvelope loads the envelope for the given storage id. A
	// missing or unparseable document yields a fresh empty envelope.
	GetEnvelope(id string) (*types.Envelope, error)

	// PutEnvelope writes the full envelope atomically, keyed by its ID.
	PutEnvelope(env *types.Envelope) error

	// Close releases the backing resources.
	Close() error
}
