package engine

import (
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

// ApplyServerTimers overlays server-reported progress onto local state.
//
// The server is authoritative for remaining and status only; duration
// and label are recipe-derived and never overwritten. The server's
// "completed" maps to the local "alarming" state, and a fresh arrival
// of completion triggers the alarm exactly once. Server records with no
// local counterpart are materialized best-effort (duration approximated
// as remaining) unless already completed. Local timers absent from the
// payload are untouched: the payload is a partial view, not a snapshot.
func (e *Engine) ApplyServerTimers(updates []types.ServerTimer) {
	for _, u := range updates {
		e.applyServerTimer(u)
	}
}

func (e *Engine) applyServerTimer(u types.ServerTimer) {
	status := u.Status
	if status == types.TimerCompleted {
		status = types.TimerAlarming
	}

	e.mu.Lock()
	t, ok := e.timers[u.ID]
	if !ok {
		if u.Status == types.TimerCompleted {
			e.mu.Unlock()
			return
		}

		// Best-effort restore: original duration is not transmitted.
		t = &types.Timer{
			ID:        u.ID,
			Label:     u.Label,
			Duration:  u.Remaining,
			Remaining: u.Remaining,
			Status:    status,
			IsActive:  status == types.TimerRunning,
		}
		if u.Duration > 0 {
			t.Duration = u.Duration
		}
		if t.Label == "" {
			t.Label = u.ID
		}
		e.timers[u.ID] = t
		e.order = append(e.order, u.ID)
		if status == types.TimerRunning {
			e.armTickLocked(u.ID)
		}
		snapshot := t.Clone()
		e.mu.Unlock()

		metrics.ServerTimersReconciled.Inc()
		e.session.AddTimer(snapshot)
		e.notify(u.ID)
		return
	}

	wasTerminal := t.Status == types.TimerAlarming || t.Status == types.TimerCompleted
	t.Remaining = u.Remaining
	t.Status = status
	t.IsActive = status == types.TimerRunning

	// Reconcile the tick stream with the adopted status.
	e.cancelTickLocked(u.ID)
	if status == types.TimerRunning && t.Remaining > 0 {
		e.armTickLocked(u.ID)
	}
	snapshot := t.Clone()
	e.mu.Unlock()

	metrics.ServerTimersReconciled.Inc()
	e.session.UpdateTimer(u.ID, func(p *types.Timer) {
		p.Remaining = snapshot.Remaining
		p.Status = snapshot.Status
		p.IsActive = snapshot.IsActive
	})

	if status == types.TimerAlarming && !wasTerminal && e.alarm != nil {
		e.alarm.Trigger(snapshot)
	}
	e.notify(u.ID)
}
