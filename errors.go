// Package opspod - errors.go
// Defines turn and tool errors.

package opspod

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed = errors.New("session has been closed")
	// ErrNoMessage is returned by Respond when the human input is blank.
	ErrNoMessage = errors.New("no message available")

	// ErrAgentExecutionFailed is returned when the model/tool loop fails or
	// times out. The turn is aborted and the history is left untouched.
	ErrAgentExecutionFailed = errors.New("agent execution failed")
	// ErrNoAssistantContent marks a turn whose loop completed without any
	// usable assistant reply. It is reported as a warning, never as a failure.
	ErrNoAssistantContent = errors.New("no assistant content found in agent result")
	// ErrMaxIterations is returned by the agent loop when the model keeps
	// asking for tools beyond the configured limit.
	ErrMaxIterations = errors.New("agent exceeded the maximum number of iterations")
	ErrToolNotFound  = errors.New("tool not found")
)

// IgnorableError is a tool failure the model should not retry.
type IgnorableError struct {
	Err error
}

func (e *IgnorableError) Error() string {
	return e.Err.Error()
}

func (e *IgnorableError) Unwrap() error {
	return e.Err
}

// RetryableError is a tool failure caused by the call itself (for example bad
// arguments); the model is asked to retry with a corrected call.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(format string, args ...any) error {
	return &RetryableError{Err: fmt.Errorf(format, args...)}
}
