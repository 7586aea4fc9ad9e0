package protocol

import (
	"bytes"
	"encoding/json"
	"time"
)

// MaxFrameSize is the largest inbound frame Decode accepts (4MB).
const MaxFrameSize = 4 * 1024 * 1024

// inbound mirrors the wire envelope. Pointers distinguish absent from zero.
type inbound struct {
	Op *Opcode         `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  *string         `json:"t"`
}

type helloData struct {
	HeartbeatInterval *int64 `json:"heartbeat_interval"`
}

// Decode parses a single gateway frame.
// The returned error is always a *DecodeError.
func Decode(raw []byte) (*Envelope, error) {
	if len(raw) > MaxFrameSize {
		return nil, decodeError(opUnset, "", "frame exceeds size limit", nil)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, decodeError(opUnset, "", "empty frame", nil)
	}

	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, decodeError(opUnset, "", "invalid JSON", err)
	}
	if in.Op == nil {
		return nil, decodeError(opUnset, "", "missing op", nil)
	}

	env := &Envelope{
		Op:   *in.Op,
		Data: in.D,
		Seq:  in.S,
	}
	if in.T != nil {
		env.Event = *in.T
	}

	payload, err := decodePayload(env)
	if err != nil {
		return nil, err
	}
	env.Payload = payload
	return env, nil
}

func decodePayload(env *Envelope) (Payload, error) {
	switch env.Op {
	case OpHello:
		var d helloData
		if err := unmarshalData(env, &d); err != nil {
			return nil, err
		}
		if d.HeartbeatInterval == nil || *d.HeartbeatInterval <= 0 {
			return nil, decodeError(env.Op, "", "heartbeat_interval must be positive", nil)
		}
		return &Hello{HeartbeatInterval: time.Duration(*d.HeartbeatInterval) * time.Millisecond}, nil

	case OpHeartbeatAck:
		return HeartbeatAck{}, nil

	case OpHeartbeat:
		return HeartbeatRequest{}, nil

	case OpReconnect:
		return Reconnect{}, nil

	case OpInvalidSession:
		// A missing or null d means the session cannot be resumed.
		var resumable bool
		if !emptyData(env.Data) {
			if err := json.Unmarshal(env.Data, &resumable); err != nil {
				return nil, decodeError(env.Op, env.Event, "invalid d", err)
			}
		}
		return &InvalidSession{Resumable: resumable}, nil

	case OpDispatch:
		return decodeDispatch(env)

	default:
		return &Unknown{Op: env.Op}, nil
	}
}

func decodeDispatch(env *Envelope) (Payload, error) {
	if env.Event == "" {
		return nil, decodeError(env.Op, "", "dispatch without event name", nil)
	}

	switch env.Event {
	case EventReady:
		var r Ready
		if err := unmarshalData(env, &r); err != nil {
			return nil, err
		}
		if r.SessionID == "" {
			return nil, decodeError(env.Op, env.Event, "missing session_id", nil)
		}
		return &r, nil

	case EventResumed:
		return Resumed{}, nil

	default:
		return &Dispatch{Name: env.Event}, nil
	}
}

// unmarshalData decodes env.Data into v, rejecting a missing or null body.
func unmarshalData(env *Envelope, v any) error {
	if emptyData(env.Data) {
		return decodeError(env.Op, env.Event, "missing d", nil)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return decodeError(env.Op, env.Event, "invalid d", err)
	}
	return nil
}

func emptyData(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
