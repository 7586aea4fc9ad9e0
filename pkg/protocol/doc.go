// Package protocol implements the JSON wire protocol spoken with the gateway.
//
// Every WebSocket text message carries exactly one frame. There is no
// batching and no framing beyond the WebSocket message boundary.
//
// # Wire Format
//
// Frames received from the gateway:
//
//	{"op": 0, "d": {...}, "s": 42, "t": "MESSAGE_CREATE"}
//
// Frames sent to the gateway:
//
//	{"op": 1, "d": 42}
//
// The "s" field is a monotonically increasing sequence number present only
// on dispatch frames. "t" names the dispatched event.
//
// # Opcodes
//
//   - OpDispatch (0): Server → Client named event
//   - OpHeartbeat (1): Client keep-alive, or server request for one
//   - OpIdentify (2): Client starts a new session
//   - OpResume (6): Client re-attaches to a previous session
//   - OpReconnect (7): Server asks the client to reconnect
//   - OpInvalidSession (9): Server rejects identify/resume
//   - OpHello (10): First server frame, carries the heartbeat interval
//   - OpHeartbeatAck (11): Server acknowledges a heartbeat
//
// # Decoding
//
// Decode validates the envelope shape for each opcode and returns an
// Envelope whose Payload field is one of the typed variants (*Hello,
// HeartbeatAck, HeartbeatRequest, *Ready, Resumed, *Dispatch, Reconnect,
// *InvalidSession, *Unknown). Dispatch payloads other than READY and
// RESUMED are left as raw JSON in Envelope.Data.
//
// Malformed input yields a *DecodeError that wraps ErrMalformedFrame.
// Callers are expected to drop such frames without closing the connection.
package protocol
