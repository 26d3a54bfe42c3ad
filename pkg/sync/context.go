package sync

import (
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hearthware/stovetop/pkg/bus"
	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/storage"
	"github.com/hearthware/stovetop/pkg/types"
)

// MultiplierTimeout caps the synchronous servings-multiplier exchange.
// Unlike the general broadcast it is latency-sensitive: an absent
// parent must not stall rendering, so the fallback value 1 applies
// after this window.
const MultiplierTimeout = 200 * time.Millisecond

// MultiplierFunc answers servings-multiplier requests for a creation
// key. A nil func answers 1.
type MultiplierFunc func(creationKey string) float64

// Options configures a Context.
type Options struct {
	Store      storage.Store
	Endpoint   *bus.Endpoint
	StorageID  string
	Signal     *LocalSignal   // optional: same-origin peers sharing Store
	Multiplier MultiplierFunc // optional: local multiplier authority
}

// Context wraps the persistent store for one browsing context and keeps
// it converged with the other contexts of the same logical session.
//
// Write path: every mutation serializes the full envelope to the local
// store, signals same-origin peers, and broadcasts STORAGE_SYNC to the
// parent and all children. Read path: inbound envelopes are adopted
// wholesale (last-writer-wins, no field merge), preserving only the
// local storage id when the incoming one is absent.
type Context struct {
	mu     gosync.Mutex
	env    *types.Envelope
	closed bool

	store      storage.Store
	ep         *bus.Endpoint
	storageID  string
	signal     *LocalSignal
	multiplier MultiplierFunc

	pendingMu gosync.Mutex
	pending   map[string]chan float64

	onChange func()
	logger   zerolog.Logger
}

// NewContext loads the envelope from the store, wires the bus and the
// same-origin signal, and, when embedded, asks the parent for its
// current envelope so a freshly loaded child picks up state that
// predates it.
func NewContext(opts Options) (*Context, error) {
	if opts.Store == nil || opts.Endpoint == nil {
		return nil, fmt.Errorf("sync context requires a store and a bus endpoint")
	}
	if opts.StorageID == "" {
		return nil, fmt.Errorf("sync context requires a storage id")
	}

	env, err := opts.Store.GetEnvelope(opts.StorageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load envelope: %w", err)
	}

	c := &Context{
		env:        env,
		store:      opts.Store,
		ep:         opts.Endpoint,
		storageID:  opts.StorageID,
		signal:     opts.Signal,
		multiplier: opts.Multiplier,
		pending:    make(map[string]chan float64),
		logger:     log.WithContextID(opts.Endpoint.ID()),
	}

	if c.signal != nil {
		c.signal.Watch(c.ep.ID(), c.adoptFromSignal)
	}

	go c.dispatch()

	// Bootstrap: an embedded context asks its parent for current state.
	if c.ep.Embedded() {
		c.ep.SendToParent(types.Message{Type: types.MsgStorageRequest})
		metrics.SyncMessagesTotal.WithLabelValues(string(types.MsgStorageRequest), "out").Inc()
	}

	return c, nil
}

// Close unregisters the same-origin watcher. The dispatch loop ends
// when the endpoint is detached from the bus.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.signal != nil {
		c.signal.Unwatch(c.ep.ID())
	}
}

// SetOnChange registers a callback invoked after an inbound envelope is
// adopted. The UI layer and the engine subscribe here instead of
// polling.
func (c *Context) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Envelope returns a deep copy of the current envelope.
func (c *Context) Envelope() *types.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env.Clone()
}

// Mutate applies fn to the envelope, persists the whole document, and
// broadcasts it. This is the only write path; there is no partial
// write.
func (c *Context) Mutate(fn func(*types.Envelope)) {
	c.mu.Lock()
	fn(c.env)
	snapshot := c.env.Clone()
	c.mu.Unlock()

	c.persistAndBroadcast(snapshot)
}

// SetPreference stores one preferences key through the normal write
// path.
func (c *Context) SetPreference(key string, value any) {
	c.Mutate(func(env *types.Envelope) {
		if env.Preferences == nil {
			env.Preferences = map[string]any{}
		}
		env.Preferences[key] = value
	})
}

func (c *Context) persistAndBroadcast(snapshot *types.Envelope) {
	if err := c.store.PutEnvelope(snapshot); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist envelope")
	}
	if c.signal != nil {
		c.signal.Publish(c.ep.ID(), snapshot)
	}

	msg := types.Message{Type: types.MsgStorageSync, Storage: snapshot}
	c.ep.SendToParent(msg)
	c.ep.SendToChildren(msg)
	metrics.SyncMessagesTotal.WithLabelValues(string(types.MsgStorageSync), "out").Inc()
}

// adopt replaces the in-memory envelope wholesale with the incoming
// payload. Only the local storage id survives when the incoming one is
// absent; there is no field-level merge.
func (c *Context) adopt(in *types.Envelope) *types.Envelope {
	if in == nil {
		return nil
	}

	c.mu.Lock()
	incoming := in.Clone()
	if incoming.ID == "" {
		incoming.ID = c.env.ID
	}
	c.env = incoming
	fn := c.onChange
	snapshot := c.env.Clone()
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
	return snapshot
}

// adoptFromSignal handles the same-origin storage-change signal. The
// writer already owns the shared store, so adoption here neither
// persists nor republishes.
func (c *Context) adoptFromSignal(in *types.Envelope) {
	c.adopt(in)
}

// adoptFromBroadcast handles a STORAGE_SYNC message from another
// context. The envelope is persisted locally and signalled to
// same-origin peers, but never rebroadcast on the bus.
func (c *Context) adoptFromBroadcast(in *types.Envelope) {
	snapshot := c.adopt(in)
	if snapshot == nil {
		return
	}
	if err := c.store.PutEnvelope(snapshot); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist adopted envelope")
	}
	if c.signal != nil {
		c.signal.Publish(c.ep.ID(), snapshot)
	}
}

// dispatch is the inbound message loop. The union is closed; unknown
// kinds are dropped.
func (c *Context) dispatch() {
	for msg := range c.ep.Inbox() {
		metrics.SyncMessagesTotal.WithLabelValues(string(msg.Type), "in").Inc()

		switch msg.Type {
		case types.MsgStorageSync:
			c.adoptFromBroadcast(msg.Storage)

		case types.MsgStorageRequest:
			// A child asking for current state: reply with a targeted sync.
			c.ep.SendTo(msg.From, types.Message{
				Type:    types.MsgStorageSync,
				Storage: c.Envelope(),
			})
			metrics.SyncMessagesTotal.WithLabelValues(string(types.MsgStorageSync), "out").Inc()

		case types.MsgMultiplierRequest:
			c.ep.SendTo(msg.From, types.Message{
				Type:       types.MsgMultiplierResponse,
				MessageID:  msg.MessageID,
				Multiplier: c.localMultiplier(msg.CreationKey),
			})
			metrics.SyncMessagesTotal.WithLabelValues(string(types.MsgMultiplierResponse), "out").Inc()

		case types.MsgMultiplierResponse:
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.MessageID]
			if ok {
				delete(c.pending, msg.MessageID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- msg.Multiplier
			}

		default:
			c.logger.Debug().Str("kind", string(msg.Type)).Msg("dropping unknown message kind")
		}
	}
}

func (c *Context) localMultiplier(creationKey string) float64 {
	if c.multiplier == nil {
		return 1
	}
	return c.multiplier(creationKey)
}

// RequestServingsMultiplier resolves the servings multiplier for a
// creation key. A top-level context answers locally; an embedded one
// asks its parent and falls back to 1 after MultiplierTimeout.
func (c *Context) RequestServingsMultiplier(creationKey string) float64 {
	if !c.ep.Embedded() {
		return c.localMultiplier(creationKey)
	}

	id := uuid.New().String()
	ch := make(chan float64, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.ep.SendToParent(types.Message{
		Type:        types.MsgMultiplierRequest,
		MessageID:   id,
		CreationKey: creationKey,
	})
	metrics.SyncMessagesTotal.WithLabelValues(string(types.MsgMultiplierRequest), "out").Inc()

	select {
	case m := <-ch:
		return m
	case <-time.After(MultiplierTimeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		c.logger.Debug().Str("creation_key", creationKey).Msg("multiplier request timed out, using default")
		return 1
	}
}
