/*
Package engine implements the timer state machine and its scheduling.

One Engine owns the countdown timers of a single session. Timers move
through a five-state machine:

	idle --Start--> running
	running --Pause--> paused
	running --(remaining hits 0)--> alarming
	paused --Resume--> running
	paused/idle --Reset--> idle
	alarming --StopAlarm--> (timer removed)
	any --AddTime--> same state, remaining increased

Every operation silently no-ops on an unknown id: timers are
best-effort UI state, and callers can always re-derive label and
duration from recipe content and call GetOrCreate again. Nothing in
this package throws across its operation boundary.

# Scheduling

Ticks are aligned to wall-clock second boundaries: arming a timer
defers the first tick by 1000 - (now mod 1000) milliseconds, so timers
started at different moments land on the same second edge. This is a
visual-consistency guarantee, not a correctness requirement. Each tick
decrements remaining by one; every tenth value is flushed to the store,
and expiry flushes immediately, clears the handle, and triggers the
alarm subsystem.

Exactly one tick stream may exist per timer. Arming always cancels the
previous handle first, and cancellation bumps a generation counter so
an in-flight stale callback cannot resurrect a cancelled countdown.
Every transition out of running cancels its handle before mutating
state; preserve that ordering.

# Collaborators

The engine persists through a SessionStore (full-envelope
read-patch-write per mutation), triggers an Alarmer on expiry, and
mirrors start/pause/delete to an optional RemoteCommander. Server
progress flows back in through ApplyServerTimers, which overlays
remaining and status without touching recipe-derived metadata.

The Clock abstraction (RealClock in production, FakeClock in tests)
makes tick delivery deterministic under test.
*/
package engine
