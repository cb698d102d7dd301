// Package reasoning is the boundary to the external language-model
// capability: the Reasoner port, its HTTP client, and the parser that turns
// free-text responses into codes, scores and confidences.
package reasoning

//go:generate mockgen -source=reasoning.go -destination=mocks/mocks.go -package=mocks Reasoner

import (
	"context"
	"errors"
	"fmt"
)

// Reasoner completes a prompt. Implementations must be safe for concurrent
// use and must wrap every failure in ErrUnavailable.
type Reasoner interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// ErrUnavailable is the sentinel every reasoning failure unwraps to.
// Callers treat it as "no additional findings" and carry on.
var ErrUnavailable = errors.New("reasoning unavailable")

// Kind classifies a reasoning failure.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindCircuitOpen Kind = "circuit_open"
	KindHTTPStatus  Kind = "http_status"
	KindTransport   Kind = "transport"
	KindMalformed   Kind = "malformed"
	KindDisabled    Kind = "disabled"
)

// Error describes a failed reasoning call.
type Error struct {
	Kind       Kind
	Attempts   int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("reasoning %s after %d attempt(s)", e.Kind, e.Attempts)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Underlying == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Underlying}
}

// KindOf returns the failure kind, or "" when err is not a reasoning error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Disabled is the Reasoner used when no capability is configured. Every
// call fails immediately.
type Disabled struct{}

// Complete always returns ErrUnavailable.
func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", &Error{Kind: KindDisabled, Message: "no reasoning backend configured"}
}
