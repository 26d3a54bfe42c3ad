/*
Package types defines the core data structures used throughout Stovetop.

This package contains the fundamental types of the timer engine's domain
model: timers, session state, the persisted storage envelope, the
cross-context message union, and the server reconciliation wire frames.
All other packages depend on it for state management and protocol
communication.

# Core Types

Timer Lifecycle:
  - Timer: one countdown with label, duration, remaining, status
  - TimerStatus: idle, running, paused, completed, alarming

Persistence:
  - SessionState: ordered timer set plus opaque UI blobs for one session
  - Envelope: the single top-level persisted document (id, preferences,
    per-session state); the only unit of atomic persistence

Protocols:
  - Message / MessageKind: closed tagged union for the parent/child
    broadcast plane (STORAGE_SYNC, STORAGE_REQUEST, servings multiplier
    request/response)
  - ServerFrame / ClientFrame: JSON frames on the reconciliation socket
  - TimerCommand: body of the point-to-point start/pause/delete calls

# State Machine

Timers follow a state machine with no dead ends:

	idle --start--> running
	running --pause--> paused
	running --(remaining hits 0)--> alarming
	paused --resume--> running
	paused/idle --reset--> idle
	alarming --stopAlarm--> (timer removed)
	any --addTime--> same state, remaining increased

# Design Patterns

All enums use typed string constants. Optional fields use pointers
(StepIndex). Transient runtime resources are deliberately absent from
Timer: the engine keeps handle tables keyed by timer id so a persisted
record never drags a non-serializable handle through JSON.

Types are read-safe for concurrent use; mutations must be synchronized
by callers. Clone methods produce deep copies for handing state across
context boundaries.
*/
package types
