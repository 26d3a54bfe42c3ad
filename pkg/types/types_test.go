package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func sampleEnvelope() *Envelope {
	env := NewEnvelope("widget-7")
	env.Preferences["volume"] = 0.8
	env.Preferences["muted"] = false

	s := env.Session("creation-abc")
	s.Timers = []*Timer{
		{ID: "t1", Label: "Boil pasta", Duration: 480, Remaining: 480, Status: TimerIdle},
		{ID: "t2", Label: "Simmer sauce", Duration: 1200, Remaining: 733, Status: TimerRunning, StepIndex: intPtr(3), IsActive: true},
	}
	s.Image = json.RawMessage(`{"url":"https://example.com/dish.jpg"}`)
	s.Checklist = json.RawMessage(`["salt water","reserve cup"]`)
	return env
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := sampleEnvelope()

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var got Envelope
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, env.State["creation-abc"].Timers, got.State["creation-abc"].Timers)
	assert.JSONEq(t, string(env.State["creation-abc"].Image), string(got.State["creation-abc"].Image))
	assert.JSONEq(t, string(env.State["creation-abc"].Checklist), string(got.State["creation-abc"].Checklist))
	assert.Equal(t, false, got.Preferences["muted"])
}

func TestEnvelopeClone(t *testing.T) {
	env := sampleEnvelope()
	clone := env.Clone()

	assert.Equal(t, env, clone)

	// Mutating the clone must not reach the original.
	clone.Preferences["muted"] = true
	clone.State["creation-abc"].Timers[1].Remaining = 0
	*clone.State["creation-abc"].Timers[1].StepIndex = 9

	assert.Equal(t, false, env.Preferences["muted"])
	assert.Equal(t, 733, env.State["creation-abc"].Timers[1].Remaining)
	assert.Equal(t, 3, *env.State["creation-abc"].Timers[1].StepIndex)
}

func TestEnvelopeSessionCreatesOnFirstReference(t *testing.T) {
	env := NewEnvelope("w")

	s := env.Session("new-key")
	require.NotNil(t, s)
	assert.Empty(t, s.Timers)

	// Same key returns the same state.
	s.Timers = append(s.Timers, &Timer{ID: "t1"})
	assert.Len(t, env.Session("new-key").Timers, 1)

	// Works on a zero-value envelope too.
	var bare Envelope
	assert.NotNil(t, bare.Session("k"))
}

func TestSessionStateFindRemove(t *testing.T) {
	s := &SessionState{Timers: []*Timer{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}

	assert.Equal(t, "b", s.FindTimer("b").ID)
	assert.Nil(t, s.FindTimer("missing"))

	s.RemoveTimer("b")
	require.Len(t, s.Timers, 2)
	assert.Equal(t, "a", s.Timers[0].ID)
	assert.Equal(t, "c", s.Timers[1].ID)

	// Removing an absent id is a no-op.
	s.RemoveTimer("missing")
	assert.Len(t, s.Timers, 2)
}

func TestTimerClone(t *testing.T) {
	var nilTimer *Timer
	assert.Nil(t, nilTimer.Clone())

	orig := &Timer{ID: "t1", StepIndex: intPtr(2)}
	c := orig.Clone()
	*c.StepIndex = 5
	assert.Equal(t, 2, *orig.StepIndex)
}
