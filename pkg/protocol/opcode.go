package protocol

import "strconv"

// Opcode identifies the kind of a gateway frame.
type Opcode int

const (
	OpDispatch       Opcode = 0  // Server → Client event
	OpHeartbeat      Opcode = 1  // Keep-alive (both directions)
	OpIdentify       Opcode = 2  // Client handshake for a new session
	OpPresenceUpdate Opcode = 3  // Client presence update
	OpVoiceState     Opcode = 4  // Client voice state update
	OpResume         Opcode = 6  // Client handshake for an existing session
	OpReconnect      Opcode = 7  // Server asks for a reconnect
	OpRequestMembers Opcode = 8  // Client member chunk request
	OpInvalidSession Opcode = 9  // Server rejected the session
	OpHello          Opcode = 10 // First server frame
	OpHeartbeatAck   Opcode = 11 // Server acknowledged a heartbeat
)

// String returns the string representation of the opcode.
func (op Opcode) String() string {
	switch op {
	case OpDispatch:
		return "Dispatch"
	case OpHeartbeat:
		return "Heartbeat"
	case OpIdentify:
		return "Identify"
	case OpPresenceUpdate:
		return "PresenceUpdate"
	case OpVoiceState:
		return "VoiceState"
	case OpResume:
		return "Resume"
	case OpReconnect:
		return "Reconnect"
	case OpRequestMembers:
		return "RequestMembers"
	case OpInvalidSession:
		return "InvalidSession"
	case OpHello:
		return "Hello"
	case OpHeartbeatAck:
		return "HeartbeatAck"
	default:
		return "Unknown(" + strconv.Itoa(int(op)) + ")"
	}
}

// CloseCode is a WebSocket close status code.
// Codes 4000-4999 are gateway specific.
type CloseCode int

const (
	CloseNormal           CloseCode = 1000
	CloseGoingAway        CloseCode = 1001
	CloseNoStatus         CloseCode = 1005
	CloseAbnormal         CloseCode = 1006 // No close frame was received
	CloseUnknownError     CloseCode = 4000
	CloseUnknownOpcode    CloseCode = 4001
	CloseDecodeError      CloseCode = 4002
	CloseNotAuthed        CloseCode = 4003
	CloseAuthFailed       CloseCode = 4004
	CloseAlreadyAuthed    CloseCode = 4005
	CloseInvalidSeq       CloseCode = 4007
	CloseRateLimited      CloseCode = 4008
	CloseSessionTimeout   CloseCode = 4009
	CloseInvalidShard     CloseCode = 4010
	CloseShardingNeeded   CloseCode = 4011
	CloseInvalidVersion   CloseCode = 4012
	CloseInvalidIntents   CloseCode = 4013
	CloseDisallowedIntent CloseCode = 4014

	// Client-chosen codes. A close with 1000 or 1001 invalidates the
	// session server side, so reconnects that intend to resume use these.
	CloseReconnectRequested CloseCode = 4900
	CloseHeartbeatTimeout   CloseCode = 4901
)

// String returns the string representation of the close code.
func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseNoStatus:
		return "NoStatus"
	case CloseAbnormal:
		return "Abnormal"
	case CloseUnknownError:
		return "UnknownError"
	case CloseUnknownOpcode:
		return "UnknownOpcode"
	case CloseDecodeError:
		return "DecodeError"
	case CloseNotAuthed:
		return "NotAuthenticated"
	case CloseAuthFailed:
		return "AuthenticationFailed"
	case CloseAlreadyAuthed:
		return "AlreadyAuthenticated"
	case CloseInvalidSeq:
		return "InvalidSeq"
	case CloseRateLimited:
		return "RateLimited"
	case CloseSessionTimeout:
		return "SessionTimedOut"
	case CloseInvalidShard:
		return "InvalidShard"
	case CloseShardingNeeded:
		return "ShardingRequired"
	case CloseInvalidVersion:
		return "InvalidAPIVersion"
	case CloseInvalidIntents:
		return "InvalidIntents"
	case CloseDisallowedIntent:
		return "DisallowedIntents"
	case CloseReconnectRequested:
		return "ReconnectRequested"
	case CloseHeartbeatTimeout:
		return "HeartbeatTimeout"
	default:
		return "Unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// IsAuthFailure reports whether the close code means the token was rejected.
// Such closures are never retried.
func (c CloseCode) IsAuthFailure() bool {
	return c == CloseAuthFailed
}
