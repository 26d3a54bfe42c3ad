package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/hearthware/stovetop/pkg/types"
)

func testEnvelope(id string) *types.Envelope {
	env := types.NewEnvelope(id)
	env.Preferences["volume"] = 0.5
	s := env.Session("creation-1")
	s.Timers = []*types.Timer{
		{ID: "t1", Label: "Roast", Duration: 2400, Remaining: 1800, Status: types.TimerRunning, IsActive: true},
	}
	return env
}

// Both implementations must behave identically through the interface.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{
		"bolt":   bs,
		"memory": NewMemStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutEnvelope(testEnvelope("widget-1")))

			got, err := s.GetEnvelope("widget-1")
			require.NoError(t, err)
			assert.Equal(t, testEnvelope("widget-1"), got)
		})
	}
}

func TestStoreMissingEnvelopeIsEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.GetEnvelope("never-written")
			require.NoError(t, err)
			assert.Equal(t, "never-written", got.ID)
			assert.Empty(t, got.State)
			assert.NotNil(t, got.Preferences)
		})
	}
}

func TestStoreUpsertReplacesWholeDocument(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutEnvelope(testEnvelope("widget-1")))

			// Second write with a different shape fully replaces the
			// first. Nothing merges.
			replacement := types.NewEnvelope("widget-1")
			replacement.Session("creation-2")
			require.NoError(t, s.PutEnvelope(replacement))

			got, err := s.GetEnvelope("widget-1")
			require.NoError(t, err)
			assert.Nil(t, got.State["creation-1"])
			assert.NotNil(t, got.State["creation-2"])
			assert.Empty(t, got.Preferences)
		})
	}
}

func TestStoreRejectsAnonymousEnvelope(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.PutEnvelope(nil))
			assert.Error(t, s.PutEnvelope(&types.Envelope{}))
		})
	}
}

func TestMemStoreCorruptionFallback(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.PutEnvelope(testEnvelope("widget-1")))
	s.Corrupt("widget-1")

	got, err := s.GetEnvelope("widget-1")
	require.NoError(t, err)
	assert.Equal(t, "widget-1", got.ID)
	assert.Empty(t, got.State)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.PutEnvelope(testEnvelope("widget-1")))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetEnvelope("widget-1")
	require.NoError(t, err)
	assert.Equal(t, testEnvelope("widget-1"), got)
}

func TestBoltStoreCorruptionFallback(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.PutEnvelope(testEnvelope("widget-1")))

	// Scribble over the stored value directly.
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEnvelopes).Put([]byte("widget-1"), []byte("{not json"))
	}))

	got, err := s.GetEnvelope("widget-1")
	require.NoError(t, err)
	assert.Equal(t, "widget-1", got.ID)
	assert.Empty(t, got.State)
}
