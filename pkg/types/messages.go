package types

// MessageKind tags a cross-context message. The set is closed: the
// dispatch loops switch over it exhaustively and drop anything else.
type MessageKind string

const (
	MsgStorageSync        MessageKind = "STORAGE_SYNC"
	MsgStorageRequest     MessageKind = "STORAGE_REQUEST"
	MsgMultiplierRequest  MessageKind = "REQUEST_SERVINGS_MULTIPLIER"
	MsgMultiplierResponse MessageKind = "SERVINGS_MULTIPLIER_RESPONSE"
)

// Message is one frame on the cross-context plane between a parent
// document and its embedded children. No origin checks: the widget is
// meant to be embedded on arbitrary third-party sites.
type Message struct {
	Type        MessageKind `json:"type"`
	Storage     *Envelope   `json:"storage,omitempty"`     // MsgStorageSync
	MessageID   string      `json:"messageId,omitempty"`   // multiplier correlation id
	CreationKey string      `json:"creationKey,omitempty"` // MsgMultiplierRequest
	Multiplier  float64     `json:"multiplier,omitempty"`  // MsgMultiplierResponse

	// From identifies the sending context. Set by the bus on delivery,
	// never serialized.
	From string `json:"-"`
}
