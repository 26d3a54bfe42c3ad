package bus

import (
	"sync"

	"github.com/hearthware/stovetop/pkg/types"
)

// inboxSize buffers bursts without blocking senders. Delivery is best
// effort: a full inbox drops the message, matching the fire-and-forget
// semantics of the browser message plane this models.
const inboxSize = 64

// Bus is the in-process message plane connecting browsing contexts. A
// parent document and its embedded children attach as endpoints; the
// bus routes targeted sends and parent/children broadcasts between
// them. No origin checks exist on this plane.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		endpoints: make(map[string]*Endpoint),
	}
}

// Endpoint is one attached context. ParentID is empty for a top-level
// context; everything else is an embedded child.
type Endpoint struct {
	id       string
	parentID string
	bus      *Bus
	inbox    chan types.Message

	mu     sync.Mutex
	closed bool
}

// Attach registers a context on the bus. parentID is empty for the
// top-level context.
func (b *Bus) Attach(id, parentID string) *Endpoint {
	ep := &Endpoint{
		id:       id,
		parentID: parentID,
		bus:      b,
		inbox:    make(chan types.Message, inboxSize),
	}

	b.mu.Lock()
	b.endpoints[id] = ep
	b.mu.Unlock()

	return ep
}

// Detach removes a context and closes its inbox.
func (b *Bus) Detach(ep *Endpoint) {
	b.mu.Lock()
	delete(b.endpoints, ep.id)
	b.mu.Unlock()

	ep.mu.Lock()
	if !ep.closed {
		ep.closed = true
		close(ep.inbox)
	}
	ep.mu.Unlock()
}

// deliver places a message on the target's inbox, dropping it when the
// target is gone or its buffer is full.
func (b *Bus) deliver(target string, msg types.Message) {
	b.mu.RLock()
	ep, ok := b.endpoints[target]
	b.mu.RUnlock()
	if !ok {
		return
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.closed {
		return
	}
	select {
	case ep.inbox <- msg:
	default:
		// Inbox full, skip
	}
}

// childrenOf returns the ids of every endpoint embedded under parent.
func (b *Bus) childrenOf(parent string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ids []string
	for id, ep := range b.endpoints {
		if ep.parentID == parent {
			ids = append(ids, id)
		}
	}
	return ids
}

// ID returns the endpoint's context id.
func (e *Endpoint) ID() string {
	return e.id
}

// Embedded reports whether this context has a parent, i.e. its window
// is not the top-level window.
func (e *Endpoint) Embedded() bool {
	return e.parentID != ""
}

// Inbox returns the channel of inbound messages.
func (e *Endpoint) Inbox() <-chan types.Message {
	return e.inbox
}

// SendToParent sends a message to the parent context. No-op for a
// top-level context.
func (e *Endpoint) SendToParent(msg types.Message) {
	if e.parentID == "" {
		return
	}
	msg.From = e.id
	e.bus.deliver(e.parentID, msg)
}

// SendToChildren sends a message to every context embedded under this
// one.
func (e *Endpoint) SendToChildren(msg types.Message) {
	msg.From = e.id
	for _, id := range e.bus.childrenOf(e.id) {
		e.bus.deliver(id, msg)
	}
}

// SendTo sends a message to one specific context, the reply path for
// request/response exchanges.
func (e *Endpoint) SendTo(target string, msg types.Message) {
	msg.From = e.id
	e.bus.deliver(target, msg)
}
