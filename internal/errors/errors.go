// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidPostback indicates postback data could not be decoded.
	ErrInvalidPostback = errors.New("invalid postback data")

	// ErrArticleNotFound indicates a referenced article does not exist in the store.
	ErrArticleNotFound = errors.New("article not found")

	// ErrReplyNotFound indicates a referenced article reply does not exist in the store.
	ErrReplyNotFound = errors.New("article reply not found")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// ManipulationError represents invalid user-driven input to a conversation
// state handler, e.g. pressing a button with parameters that no longer make
// sense. It is the only handler error class that is recoverable: the
// dispatcher converts it into a warning reply instead of failing the
// interaction.
type ManipulationError struct {
	// Msg is shown to the user verbatim inside the warning bubble.
	Msg string
}

func (e *ManipulationError) Error() string {
	return fmt.Sprintf("invalid user action: %s", e.Msg)
}

// NewManipulationError creates a manipulation error with a user-facing message.
func NewManipulationError(msg string) *ManipulationError {
	return &ManipulationError{Msg: msg}
}

// AsManipulationError returns the ManipulationError inside err, if any.
func AsManipulationError(err error) (*ManipulationError, bool) {
	var me *ManipulationError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
