package gateway

import "time"

// State is the connection state of a Manager.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingHello
	StateIdentifying
	StateResuming
	StateReady
	StateReconnecting
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateIdentifying:
		return "identifying"
	case StateResuming:
		return "resuming"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time snapshot of a Manager.
type Status struct {
	State             State         `json:"state"`
	ConnectionID      string        `json:"connection_id,omitempty"`
	SessionID         string        `json:"session_id,omitempty"`
	Sequence          *int64        `json:"sequence,omitempty"`
	ResumeURL         string        `json:"resume_url,omitempty"`
	ReconnectAttempts int           `json:"reconnect_attempts"`
	Latency           time.Duration `json:"latency_ns"`
	LastHeartbeatAck  time.Time     `json:"last_heartbeat_ack,omitempty"`
	Destroyed         bool          `json:"destroyed"`
}
