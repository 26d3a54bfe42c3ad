package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthware/stovetop/pkg/types"
)

func TestReconcilePrecedence(t *testing.T) {
	eng, session, _, _, clock := newTestEngine(t)

	eng.GetOrCreate("t1", 300, "Boil", nil)
	eng.Start("t1")
	clock.Advance(100 * time.Second)
	require.Equal(t, 200, eng.Timer("t1").Remaining)

	// Server clock ran ahead. Progress fields are adopted, recipe
	// fields are not.
	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "t1", Remaining: 150, Status: types.TimerRunning, Label: "server label", Duration: 999},
	})

	got := eng.Timer("t1")
	assert.Equal(t, 150, got.Remaining)
	assert.Equal(t, types.TimerRunning, got.Status)
	assert.Equal(t, 300, got.Duration)
	assert.Equal(t, "Boil", got.Label)

	// Counting continues from the adopted value.
	clock.Advance(2 * time.Second)
	assert.Equal(t, 148, eng.Timer("t1").Remaining)

	// Reconciliation persists immediately.
	p := session.persisted("t1")
	assert.Equal(t, "Boil", p.Label)
	assert.Equal(t, 300, p.Duration)
}

func TestReconcileCompletedMapsToAlarming(t *testing.T) {
	eng, _, alarms, _, clock := newTestEngine(t)

	eng.GetOrCreate("t1", 60, "Steam", nil)
	eng.Start("t1")
	clock.Advance(5 * time.Second)

	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "t1", Remaining: 0, Status: types.TimerCompleted},
	})

	got := eng.Timer("t1")
	assert.Equal(t, types.TimerAlarming, got.Status)
	assert.Equal(t, 0, got.Remaining)
	assert.Equal(t, 1, alarms.triggered("t1"))

	// A repeated completion report must not re-fire the alarm.
	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "t1", Remaining: 0, Status: types.TimerCompleted},
	})
	assert.Equal(t, 1, alarms.triggered("t1"))

	// The local tick stream was cancelled with the adoption.
	clock.Advance(10 * time.Second)
	assert.Equal(t, 0, eng.Timer("t1").Remaining)
}

func TestReconcileMaterializesUnknownTimer(t *testing.T) {
	eng, session, _, _, clock := newTestEngine(t)

	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "srv-1", Remaining: 45, Status: types.TimerRunning},
	})

	got := eng.Timer("srv-1")
	require.NotNil(t, got)
	assert.Equal(t, 45, got.Remaining)
	assert.Equal(t, 45, got.Duration) // best guess without the recipe
	assert.Equal(t, "srv-1", got.Label)
	assert.Equal(t, types.TimerRunning, got.Status)
	assert.NotNil(t, session.persisted("srv-1"))

	// Materialized running timers tick locally too.
	clock.Advance(3 * time.Second)
	assert.Equal(t, 42, eng.Timer("srv-1").Remaining)
}

func TestReconcileMaterializeUsesServerDuration(t *testing.T) {
	eng, _, _, _, _ := newTestEngine(t)

	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "srv-2", Remaining: 30, Duration: 120, Label: "Knead", Status: types.TimerPaused},
	})

	got := eng.Timer("srv-2")
	require.NotNil(t, got)
	assert.Equal(t, 120, got.Duration)
	assert.Equal(t, "Knead", got.Label)
	assert.Equal(t, types.TimerPaused, got.Status)
}

func TestReconcileSkipsUnknownCompleted(t *testing.T) {
	eng, _, alarms, _, _ := newTestEngine(t)

	// A completed timer we never knew about would alarm for something
	// the cook never started. Drop it.
	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "stale", Remaining: 0, Status: types.TimerCompleted},
	})

	assert.Nil(t, eng.Timer("stale"))
	assert.Equal(t, 0, alarms.triggered("stale"))
}

func TestReconcileLeavesAbsentTimersAlone(t *testing.T) {
	eng, _, _, _, clock := newTestEngine(t)

	eng.GetOrCreate("local", 60, "Whip", nil)
	eng.Start("local")
	clock.Advance(5 * time.Second)

	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "other", Remaining: 10, Status: types.TimerRunning},
	})

	got := eng.Timer("local")
	assert.Equal(t, 55, got.Remaining)
	assert.Equal(t, types.TimerRunning, got.Status)
}

func TestReconcilePauseCancelsTicks(t *testing.T) {
	eng, _, _, _, clock := newTestEngine(t)

	eng.GetOrCreate("t1", 60, "Simmer", nil)
	eng.Start("t1")
	clock.Advance(2 * time.Second)

	eng.ApplyServerTimers([]types.ServerTimer{
		{ID: "t1", Remaining: 50, Status: types.TimerPaused},
	})

	clock.Advance(10 * time.Second)
	got := eng.Timer("t1")
	assert.Equal(t, 50, got.Remaining)
	assert.Equal(t, types.TimerPaused, got.Status)
}
