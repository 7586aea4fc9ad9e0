package gateway

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vgate/pkg/protocol"
)

// Sentinel errors for manager operations.
var (
	// ErrTokenNotSet is returned when a handshake starts without a token.
	ErrTokenNotSet = errors.New("gateway: token not set")

	// ErrTokenAlreadySet is returned by SetToken when a token is present.
	ErrTokenAlreadySet = errors.New("gateway: token already set")

	// ErrEmptyToken is returned by SetToken for an empty string.
	ErrEmptyToken = errors.New("gateway: empty token")

	// ErrAuthenticationFailed is wrapped by the *CloseError for close code 4004.
	ErrAuthenticationFailed = errors.New("gateway: authentication failed")

	// ErrReconnectExhausted is returned when the reconnect attempt cap is reached.
	ErrReconnectExhausted = errors.New("gateway: reconnect attempts exhausted")

	// ErrManagerDestroyed is returned after Destroy.
	ErrManagerDestroyed = errors.New("gateway: manager destroyed")
)

// CloseError reports a connection closure that ended the manager.
type CloseError struct {
	Code   protocol.CloseCode
	Reason string
	Err    error
}

// Error returns the error message with the close code.
func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("gateway: closed with %d (%s): %v", int(e.Code), e.Code, e.Err)
	}
	return fmt.Sprintf("gateway: closed with %d (%s, %q): %v", int(e.Code), e.Code, e.Reason, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *CloseError) Unwrap() error {
	return e.Err
}
