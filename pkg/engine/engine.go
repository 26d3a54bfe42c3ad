package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

// persistEvery throttles tick persistence: remaining is flushed to the
// store only when divisible by this, so the persisted value may lag the
// in-memory one by up to persistEvery-1 seconds. Expiry and explicit
// operations flush immediately.
const persistEvery = 10

// Alarmer is the alarm/notification subsystem the engine triggers on
// expiry. Implementations must be safe to call with unknown ids.
type Alarmer interface {
	Trigger(t *types.Timer)
	Stop(id string)
	ReleaseAll()
}

// RemoteCommander mirrors lifecycle operations to a remote authority.
// All calls are fire-and-forget: failures are the implementation's
// problem and never block local operation.
type RemoteCommander interface {
	TimerStarted(t *types.Timer)
	TimerPaused(t *types.Timer)
	TimerDeleted(id string)
}

// SessionStore is the session accessor the engine persists through.
// Every mutation it receives is a full-envelope read-patch-write on the
// other side.
type SessionStore interface {
	Key() string
	SessionState() *types.SessionState
	AddTimer(t *types.Timer)
	UpdateTimer(id string, patch func(*types.Timer))
	RemoveTimer(id string)
}

// tickState is the runtime handle table entry for one running timer.
// Generations guard against stale callbacks: a cancelled stream's
// in-flight tick sees a generation mismatch and does nothing, so no
// tick can fire after a transition out of running.
type tickState struct {
	gen    uint64
	handle TickHandle
}

// Engine owns timer lifecycle and countdown math for one session. It
// reads and writes exclusively through its SessionStore and keeps
// transient resources (tick handles) in a parallel table so the
// persisted record stays serializable.
//
// Operations on different timer ids are independent; operations on the
// same id must be serialized by the caller. The internal mutex protects
// map integrity, not cross-operation ordering.
type Engine struct {
	mu      sync.Mutex
	timers  map[string]*types.Timer
	order   []string
	handles map[string]*tickState
	nextGen uint64

	session SessionStore
	clock   Clock
	alarm   Alarmer
	remote  RemoteCommander

	onChange func(id string)
	logger   zerolog.Logger
}

// Options configures an Engine. Session is required; Clock defaults to
// RealClock; Alarm and Remote are optional collaborators.
type Options struct {
	Session  SessionStore
	Clock    Clock
	Alarm    Alarmer
	Remote   RemoteCommander
	OnChange func(id string)
}

// New creates an engine for one session. Call RestoreFromStore to pick
// up persisted timers.
func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Engine{
		timers:   make(map[string]*types.Timer),
		handles:  make(map[string]*tickState),
		session:  opts.Session,
		clock:    clock,
		alarm:    opts.Alarm,
		remote:   opts.Remote,
		onChange: opts.OnChange,
		logger:   log.WithComponent("engine"),
	}
}

// SetRemote attaches the remote commander after construction. The
// engine and the reconciliation client hold references to each other,
// so one side has to be wired late.
func (e *Engine) SetRemote(r RemoteCommander) {
	e.mu.Lock()
	e.remote = r
	e.mu.Unlock()
}

// GetOrCreate returns the timer with the given id, constructing an idle
// one on first reference. For an existing idle timer whose duration or
// label drifted from the recipe content, both are refreshed in place;
// a running or paused countdown is never touched.
func (e *Engine) GetOrCreate(id string, duration int, label string, stepIndex *int) *types.Timer {
	e.mu.Lock()

	if t, ok := e.timers[id]; ok {
		changed := false
		if t.Status == types.TimerIdle && (t.Duration != duration || t.Label != label) {
			t.Duration = duration
			t.Remaining = duration
			t.Label = label
			t.StepIndex = stepIndex
			changed = true
		}
		snapshot := t.Clone()
		e.mu.Unlock()

		if changed {
			e.session.UpdateTimer(id, func(p *types.Timer) {
				p.Duration = snapshot.Duration
				p.Remaining = snapshot.Remaining
				p.Label = snapshot.Label
				p.StepIndex = snapshot.StepIndex
			})
			e.notify(id)
		}
		return snapshot
	}

	t := &types.Timer{
		ID:        id,
		Label:     label,
		Duration:  duration,
		Remaining: duration,
		Status:    types.TimerIdle,
		StepIndex: stepIndex,
	}
	e.timers[id] = t
	e.order = append(e.order, id)
	snapshot := t.Clone()
	e.mu.Unlock()

	e.session.AddTimer(snapshot)
	e.notify(id)
	return snapshot
}

// Start begins the countdown. No-op if the timer is missing or already
// running. A completed timer restarts from its full duration.
func (e *Engine) Start(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok || t.Status == types.TimerRunning {
		e.mu.Unlock()
		return
	}

	// A stale handle left behind would double-tick once running.
	e.cancelTickLocked(id)

	if t.Status == types.TimerCompleted {
		t.Remaining = t.Duration
	}
	t.Status = types.TimerRunning
	t.IsActive = true
	snapshot := t.Clone()
	e.armTickLocked(id)
	remote := e.remote
	e.mu.Unlock()

	e.session.UpdateTimer(id, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
		p.Status = snapshot.Status
		p.IsActive = true
	})
	if remote != nil {
		remote.TimerStarted(snapshot)
	}
	e.notify(id)
}

// Pause suspends a running countdown. No-op in any other state.
func (e *Engine) Pause(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok || t.Status != types.TimerRunning {
		e.mu.Unlock()
		return
	}

	// Cancel before mutating so no tick lands on the paused timer.
	e.cancelTickLocked(id)
	t.Status = types.TimerPaused
	t.IsActive = false
	snapshot := t.Clone()
	remote := e.remote
	e.mu.Unlock()

	e.session.UpdateTimer(id, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
		p.Status = snapshot.Status
		p.IsActive = false
	})
	if remote != nil {
		remote.TimerPaused(snapshot)
	}
	e.notify(id)
}

// Resume continues a paused countdown without resetting remaining.
func (e *Engine) Resume(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok || t.Status != types.TimerPaused {
		e.mu.Unlock()
		return
	}

	e.cancelTickLocked(id)
	t.Status = types.TimerRunning
	t.IsActive = true
	snapshot := t.Clone()
	e.armTickLocked(id)
	remote := e.remote
	e.mu.Unlock()

	e.session.UpdateTimer(id, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
		p.Status = snapshot.Status
		p.IsActive = true
	})
	if remote != nil {
		remote.TimerStarted(snapshot)
	}
	e.notify(id)
}

// Reset returns the timer to idle with its full duration, from any
// state. Idempotent.
func (e *Engine) Reset(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return
	}

	e.cancelTickLocked(id)
	t.Remaining = t.Duration
	t.Status = types.TimerIdle
	t.IsActive = false
	snapshot := t.Clone()
	e.mu.Unlock()

	e.session.UpdateTimer(id, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
		p.Status = snapshot.Status
		p.IsActive = false
	})
	e.notify(id)
}

// AddTime increments remaining unconditionally, in any state including
// alarming (the product's snooze semantic). Persisted immediately, not
// throttled.
func (e *Engine) AddTime(id string, seconds int) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return
	}

	t.Remaining += seconds
	snapshot := t.Clone()
	e.mu.Unlock()

	e.session.UpdateTimer(id, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
	})
	e.notify(id)
}

// StopAlarm dismisses an alarming timer: audio stops and the timer is
// removed from the session, from memory, and (when a remote commander
// is attached) from the remote authority. This is the only path that
// deletes a timer as a side effect of normal use.
func (e *Engine) StopAlarm(id string) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok || t.Status != types.TimerAlarming {
		e.mu.Unlock()
		return
	}

	e.cancelTickLocked(id)
	t.Status = types.TimerCompleted
	delete(e.timers, id)
	e.removeOrderLocked(id)
	remote := e.remote
	e.mu.Unlock()

	if e.alarm != nil {
		e.alarm.Stop(id)
	}
	e.session.RemoveTimer(id)
	if remote != nil {
		remote.TimerDeleted(id)
	}
	e.notify(id)
}

// Cleanup cancels every outstanding tick handle and releases every
// audio handle. Idempotent; safe with zero active timers.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	for id := range e.handles {
		e.cancelTickLocked(id)
	}
	e.mu.Unlock()

	if e.alarm != nil {
		e.alarm.ReleaseAll()
	}
}

// RestoreFromStore rebuilds in-memory timers from the persisted session
// state. In-flight countdown state never survives a reload; only the
// last-persisted remaining is trusted. Timers persisted with
// isActive=true and remaining>0 resume running on a fresh tick slot.
func (e *Engine) RestoreFromStore() {
	state := e.session.SessionState()

	e.mu.Lock()
	for id := range e.handles {
		e.cancelTickLocked(id)
	}
	e.timers = make(map[string]*types.Timer)
	e.order = nil

	for _, p := range state.Timers {
		t := p.Clone()
		if t.IsActive && t.Remaining > 0 {
			t.Status = types.TimerRunning
		}
		e.timers[t.ID] = t
		e.order = append(e.order, t.ID)
		if t.Status == types.TimerRunning {
			e.armTickLocked(t.ID)
		}
	}
	e.mu.Unlock()

	e.logger.Debug().Int("timers", len(state.Timers)).Msg("restored session from store")
	e.notify("")
}

// FlushAll pushes every timer's current remaining and active flag to
// the store. Best-effort unload path; advisory, not transactional.
func (e *Engine) FlushAll() {
	e.mu.Lock()
	snapshots := make([]*types.Timer, 0, len(e.order))
	for _, id := range e.order {
		if t, ok := e.timers[id]; ok {
			snapshots = append(snapshots, t.Clone())
		}
	}
	e.mu.Unlock()

	for _, s := range snapshots {
		e.session.UpdateTimer(s.ID, func(p *types.Timer) {
			p.Remaining = s.Remaining
			p.Status = s.Status
			p.IsActive = s.IsActive
		})
	}
}

// Timer returns a copy of the timer with the given id, or nil.
func (e *Engine) Timer(id string) *types.Timer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timers[id].Clone()
}

// Timers returns copies of all tracked timers in creation order.
func (e *Engine) Timers() []*types.Timer {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*types.Timer, 0, len(e.order))
	for _, id := range e.order {
		if t, ok := e.timers[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (e *Engine) removeOrderLocked(id string) {
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

// notify fires the change callback and refreshes the status gauge.
func (e *Engine) notify(id string) {
	e.mu.Lock()
	counts := map[types.TimerStatus]int{}
	for _, t := range e.timers {
		counts[t.Status]++
	}
	e.mu.Unlock()

	for _, s := range []types.TimerStatus{
		types.TimerIdle, types.TimerRunning, types.TimerPaused,
		types.TimerCompleted, types.TimerAlarming,
	} {
		metrics.TimersActive.WithLabelValues(string(s)).Set(float64(counts[s]))
	}

	if e.onChange != nil {
		e.onChange(id)
	}
}

// armTickLocked arms a fresh tick slot for the timer, deferred to the
// next wall-clock second boundary so concurrently running timers all
// land on the same edge. Any pre-existing handle must already be
// cancelled; this is the sole mechanism preventing overlapping tick
// streams.
func (e *Engine) armTickLocked(id string) {
	e.nextGen++
	gen := e.nextGen

	msToNextSecond := 1000 - (e.clock.Now().UnixMilli() % 1000)
	st := &tickState{gen: gen}
	e.handles[id] = st
	st.handle = e.clock.AfterFunc(time.Duration(msToNextSecond)*time.Millisecond, func() {
		e.tick(id, gen)
	})
}

// cancelTickLocked stops the timer's tick stream synchronously. The
// generation bump makes any in-flight callback a no-op.
func (e *Engine) cancelTickLocked(id string) {
	if st, ok := e.handles[id]; ok {
		st.handle.Stop()
		delete(e.handles, id)
	}
}

// tick delivers one per-second decrement. Stale generations (cancelled
// or re-armed streams) return immediately.
func (e *Engine) tick(id string, gen uint64) {
	e.mu.Lock()
	st, ok := e.handles[id]
	if !ok || st.gen != gen {
		e.mu.Unlock()
		return
	}
	t, ok := e.timers[id]
	if !ok || t.Status != types.TimerRunning {
		e.cancelTickLocked(id)
		e.mu.Unlock()
		return
	}

	t.Remaining--
	metrics.TicksTotal.Inc()

	if t.Remaining <= 0 {
		// Clear the handle before the state transition so no further
		// tick can resurrect remaining.
		e.cancelTickLocked(id)
		t.Remaining = 0
		t.Status = types.TimerAlarming
		t.IsActive = false
		snapshot := t.Clone()
		e.mu.Unlock()

		metrics.AlarmsTotal.Inc()
		e.session.UpdateTimer(id, func(p *types.Timer) {
			p.Remaining = 0
			p.Status = types.TimerAlarming
			p.IsActive = false
		})
		if e.alarm != nil {
			e.alarm.Trigger(snapshot)
		}
		e.notify(id)
		return
	}

	remaining := t.Remaining
	st.handle = e.clock.AfterFunc(time.Second, func() {
		e.tick(id, gen)
	})
	e.mu.Unlock()

	// Throttled flush: the persisted value may lag by up to nine
	// seconds under normal operation.
	if remaining%persistEvery == 0 {
		e.session.UpdateTimer(id, func(p *types.Timer) {
			p.Remaining = remaining
			p.IsActive = true
		})
	}
	e.notify(id)
}
