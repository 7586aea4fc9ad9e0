package protocol

import (
	"encoding/json"
	"time"
)

// Lifecycle dispatch event names.
const (
	EventReady         = "READY"
	EventResumed       = "RESUMED"
	EventMessageCreate = "MESSAGE_CREATE"
)

// Envelope is a decoded gateway frame. It is never mutated after Decode.
type Envelope struct {
	// Op is the frame opcode.
	Op Opcode

	// Data is the raw "d" field.
	Data json.RawMessage

	// Seq is the dispatch sequence number, nil when absent.
	Seq *int64

	// Event is the dispatch event name ("t"), empty when absent.
	Event string

	// Payload is the typed view of the frame.
	Payload Payload
}

// HasSeq returns true if the envelope carries a sequence number.
func (e *Envelope) HasSeq() bool {
	return e.Seq != nil
}

// Payload is the closed set of typed frame variants produced by Decode.
type Payload interface {
	payload()
}

// Hello is the first frame sent by the gateway.
type Hello struct {
	// HeartbeatInterval is the interval at which the client must heartbeat.
	HeartbeatInterval time.Duration
}

// HeartbeatAck acknowledges the last heartbeat.
type HeartbeatAck struct{}

// HeartbeatRequest asks the client to heartbeat immediately.
type HeartbeatRequest struct{}

// Reconnect asks the client to reconnect and resume.
type Reconnect struct{}

// InvalidSession reports that identify or resume was rejected.
type InvalidSession struct {
	// Resumable is true if the client may try to resume again.
	Resumable bool
}

// User is the minimal user shape carried by READY and messages.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// Ready is the payload of the READY dispatch.
type Ready struct {
	Version          int    `json:"v"`
	User             User   `json:"user"`
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url,omitempty"`
}

// Resumed is the payload of the RESUMED dispatch.
type Resumed struct{}

// Dispatch is any other named event. Its body stays in Envelope.Data.
type Dispatch struct {
	Name string
}

// Unknown is a frame with an opcode this package does not model.
type Unknown struct {
	Op Opcode
}

func (*Hello) payload() {}
func (HeartbeatAck) payload() {}
func (HeartbeatRequest) payload() {}
func (Reconnect) payload() {}
func (*InvalidSession) payload() {}
func (*Ready) payload() {}
func (Resumed) payload() {}
func (*Dispatch) payload() {}
func (*Unknown) payload() {}
