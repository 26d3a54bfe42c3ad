package types

// FrameType tags a JSON frame on the reconciliation socket.
type FrameType string

const (
	// Inbound (server -> client)
	FrameInit   FrameType = "init"
	FrameUpdate FrameType = "update"
	FrameError  FrameType = "error"
	FramePong   FrameType = "pong"

	// Outbound (client -> server)
	FramePing    FrameType = "ping"
	FrameCommand FrameType = "command"
)

// ServerTimer is the server's view of one timer. The server is
// authoritative for Remaining and Status only; Duration and Label are
// best-effort hints used when materializing timers the client has
// never seen.
type ServerTimer struct {
	ID        string      `json:"id"`
	Remaining int         `json:"remaining"`
	Status    TimerStatus `json:"status"`
	Label     string      `json:"label,omitempty"`
	Duration  int         `json:"duration,omitempty"`
}

// ServerFrame is an inbound frame from the reconciliation socket.
type ServerFrame struct {
	Type    FrameType     `json:"type"`
	Timers  []ServerTimer `json:"timers,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ClientFrame is an outbound frame on the reconciliation socket.
type ClientFrame struct {
	Type    FrameType `json:"type"`
	TimerID string    `json:"timerId,omitempty"`
	Action  string    `json:"action,omitempty"`
}

// CommandAction names a point-to-point timer command.
type CommandAction string

const (
	CommandStart  CommandAction = "start"
	CommandPause  CommandAction = "pause"
	CommandDelete CommandAction = "delete"
)

// TimerCommand is the body of a point-to-point command call. Commands
// are fire-and-forget: a failed call is logged and local operation
// proceeds unaffected.
type TimerCommand struct {
	Action     CommandAction `json:"action"`
	UserID     string        `json:"userId"`
	TimerID    string        `json:"timerId"`
	CreationID string        `json:"creationId"`
	Duration   int           `json:"duration"`
	Label      string        `json:"label"`
	Remaining  int           `json:"remaining"`
	Status     TimerStatus   `json:"status"`
	StepIndex  *int          `json:"stepIndex,omitempty"`
}
