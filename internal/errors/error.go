package errors

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/vgate/pkg/client"
	"github.com/vango-dev/vgate/pkg/gateway"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryToken   Category = "token"
	CategoryGateway Category = "gateway"
	CategoryCLI     Category = "cli"
)

// Location represents a position in a file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a coded error with an optional file location and hint.
type Error struct {
	// Code is a unique identifier such as "C001".
	Code string

	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	Location *Location

	// Context holds the lines around Location.
	Context []string

	Suggestion string

	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation records a file position and reads the surrounding lines.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 3)
	return e
}

// WithSuggestion adds a hint on how to fix the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap sets the underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// readContextLines returns up to size lines centered on target.
func readContextLines(filename string, target, size int) []string {
	if target <= 0 {
		return nil
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	start := target - size/2
	end := target + size/2
	for n := 1; scanner.Scan(); n++ {
		if n >= start && n <= end {
			lines = append(lines, scanner.Text())
		}
		if n >= end {
			break
		}
	}
	return lines
}

// New creates an Error from a registered code.
func New(code string) *Error {
	tmpl, ok := registry[code]
	if !ok {
		return &Error{Code: code, Message: "Unknown error"}
	}
	return &Error{
		Code:       code,
		Category:   tmpl.Category,
		Message:    tmpl.Message,
		Detail:     tmpl.Detail,
		Suggestion: tmpl.Suggestion,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError maps err to an *Error. Known token and gateway failures get
// their own code; anything else is wrapped under fallback.
func FromError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	code := fallback
	switch {
	case stderrors.Is(err, client.ErrTokenRequired), stderrors.Is(err, gateway.ErrTokenNotSet):
		code = "T001"
	case stderrors.Is(err, client.ErrInvalidTokenFormat):
		code = "T002"
	case stderrors.Is(err, gateway.ErrAuthenticationFailed):
		code = "G001"
	case stderrors.Is(err, gateway.ErrReconnectExhausted):
		code = "G002"
	case stderrors.Is(err, context.DeadlineExceeded):
		code = "G003"
	case stderrors.Is(err, gateway.ErrManagerDestroyed):
		code = "G004"
	}
	return New(code).Wrap(err)
}
