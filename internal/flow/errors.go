package flow

import (
	"errors"
	"fmt"
)

// Error represents a pipeline misuse or a fault raised while a pipeline ran.
//
// Errors include:
//   - Already started: a second terminal call on a single-use source
//   - Handler panic: an operator callback panicked (recovered)
//   - Handler failed: an operator callback returned an error
//
// Dropped values are never errors.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// PipelineID identifies the affected pipeline, if known.
	PipelineID string

	// Cause is the underlying error for HANDLER_FAILED.
	Cause error

	// Panic holds the recovered value for HANDLER_PANIC.
	Panic any
}

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeAlreadyStarted indicates a source was consumed twice.
	ErrCodeAlreadyStarted ErrorCode = "ALREADY_STARTED"

	// ErrCodeHandlerPanic indicates an operator callback panicked.
	ErrCodeHandlerPanic ErrorCode = "HANDLER_PANIC"

	// ErrCodeHandlerFailed indicates an operator callback returned an error.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PipelineID != "" {
		msg = fmt.Sprintf("%s (pipeline=%s)", msg, e.PipelineID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsAlreadyStarted returns true if err reports a second start of one source.
func IsAlreadyStarted(err error) bool {
	return hasCode(err, ErrCodeAlreadyStarted)
}

// IsHandlerPanic returns true if err reports a recovered operator panic.
func IsHandlerPanic(err error) bool {
	return hasCode(err, ErrCodeHandlerPanic)
}

// IsFault returns true if err is a runtime fault (panic or handler error)
// rather than a misuse.
func IsFault(err error) bool {
	return hasCode(err, ErrCodeHandlerPanic) || hasCode(err, ErrCodeHandlerFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// NewAlreadyStartedError creates an Error for a second terminal call.
func NewAlreadyStartedError(pipelineID string) *Error {
	return &Error{
		Code:       ErrCodeAlreadyStarted,
		Message:    "pipeline source already consumed",
		PipelineID: pipelineID,
	}
}

// NewPanicError creates an Error for a recovered panic.
func NewPanicError(pipelineID string, recovered any) *Error {
	return &Error{
		Code:       ErrCodeHandlerPanic,
		Message:    fmt.Sprintf("handler panicked: %v", recovered),
		PipelineID: pipelineID,
		Panic:      recovered,
	}
}

// NewHandlerError wraps an error returned by an operator callback.
// Errors that already are *Error are returned unchanged.
func NewHandlerError(pipelineID string, cause error) error {
	var fe *Error
	if errors.As(cause, &fe) {
		if fe.PipelineID == "" {
			fe.PipelineID = pipelineID
		}
		return cause
	}
	return &Error{
		Code:       ErrCodeHandlerFailed,
		Message:    "handler failed",
		PipelineID: pipelineID,
		Cause:      cause,
	}
}
