/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"errors"
	"fmt"
)

// Kind classifies a failed command.
type Kind int

const (
	MalformedRequest Kind = iota + 1
	NotFound
	InvalidState
	StoreUnavailable

	// ContestClosed and HintLocked are informational: the client gets a
	// message rather than an error, and no state changes.
	ContestClosed
	HintLocked
)

func (k Kind) String() string {
	switch k {
	case MalformedRequest:
		return "malformed request"
	case NotFound:
		return "not found"
	case InvalidState:
		return "invalid state"
	case StoreUnavailable:
		return "store unavailable"
	case ContestClosed:
		return "contest closed"
	case HintLocked:
		return "hint locked"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a command failure with the text shown to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Informational reports whether the failure is rendered as a message.
func (e *Error) Informational() bool {
	return e.Kind == ContestClosed || e.Kind == HintLocked
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func unavailable(err error) *Error {
	return &Error{
		Kind:    StoreUnavailable,
		Message: "The contest is temporarily unavailable, please try again",
		Err:     err,
	}
}

// KindOf returns the Kind of err, or zero if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}

var (
	ErrHintAlreadyUsed  = errors.New("hint already used")
	ErrHintPrerequisite = errors.New("hint 1 must be used before hint 2")
	ErrInvalidHintLevel = errors.New("hint level must be 1 or 2")
)
