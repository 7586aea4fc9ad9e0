package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame is wrapped by every DecodeError.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// DecodeError describes why an inbound frame was rejected.
type DecodeError struct {
	Op     Opcode // Opcode of the frame, if it could be read
	Event  string // Dispatch event name, if any
	Reason string // Human-readable reason
	Err    error  // Underlying JSON error, if any
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	msg := "protocol: malformed frame"
	if e.Event != "" {
		msg = fmt.Sprintf("%s (op %s, t %s)", msg, e.Op, e.Event)
	} else if e.Op != opUnset {
		msg = fmt.Sprintf("%s (op %s)", msg, e.Op)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying errors for errors.Is/As.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedFrame}
	}
	return []error{ErrMalformedFrame, e.Err}
}

// opUnset marks a DecodeError raised before the opcode was known.
const opUnset Opcode = -1

func decodeError(op Opcode, event, reason string, err error) *DecodeError {
	return &DecodeError{Op: op, Event: event, Reason: reason, Err: err}
}
