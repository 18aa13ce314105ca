package domain

// InboundKind classifies events arriving from the chat transport.
type InboundKind string

const (
	KindCommand       InboundKind = "command"
	KindText          InboundKind = "text"
	KindMenuSelection InboundKind = "menuSelection"
)

// Inbound is the transport-independent event the core consumes. For
// commands Payload holds the command name without the slash plus an
// optional argument ("start test_7" arrives as Payload "start",
// Argument "test_7").
type Inbound struct {
	SenderID int64       `json:"senderId"`
	Kind     InboundKind `json:"kind"`
	Payload  string      `json:"payload"`
	Argument string      `json:"argument,omitempty"`
}

// Choice is a structured reply option attached to an outbound message.
// Data is echoed back as a menuSelection payload when picked.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
	URL   string `json:"url,omitempty"`
}
