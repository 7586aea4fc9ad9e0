package protocol

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// outbound mirrors the wire envelope for frames sent to the gateway.
// D is always serialized, as null when empty.
type outbound struct {
	Op Opcode `json:"op"`
	D  any    `json:"d"`
}

// IdentifyProperties describe the connecting client.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// DefaultIdentifyProperties returns properties for the running process.
func DefaultIdentifyProperties() IdentifyProperties {
	return IdentifyProperties{
		OS:      runtime.GOOS,
		Browser: "vgate",
		Device:  "vgate",
	}
}

// Identify is the payload of an OpIdentify frame.
type Identify struct {
	Token      string             `json:"token"`
	Intents    Intent             `json:"intents"`
	Properties IdentifyProperties `json:"properties"`
}

// Resume is the payload of an OpResume frame.
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// Encode serializes a frame with the given opcode and payload.
func Encode(op Opcode, d any) ([]byte, error) {
	data, err := json.Marshal(outbound{Op: op, D: d})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", op, err)
	}
	return data, nil
}

// EncodeIdentify serializes an identify frame.
func EncodeIdentify(id Identify) ([]byte, error) {
	return Encode(OpIdentify, id)
}

// EncodeResume serializes a resume frame.
func EncodeResume(r Resume) ([]byte, error) {
	return Encode(OpResume, r)
}

// EncodeHeartbeat serializes a heartbeat frame.
// A nil seq is sent as null.
func EncodeHeartbeat(seq *int64) ([]byte, error) {
	if seq == nil {
		return Encode(OpHeartbeat, nil)
	}
	return Encode(OpHeartbeat, *seq)
}
