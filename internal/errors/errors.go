package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrUnreachable  = errors.New("service unreachable")
	ErrBadStatus    = errors.New("unexpected status")
	ErrCycleFailed  = errors.New("cycle failed")
	ErrCycleRunning = errors.New("cycle already running")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConnectivity ErrorType = "connectivity"
	ErrorTypeRequest      ErrorType = "request"
	ErrorTypeCycle        ErrorType = "cycle"
)

// EngineError is a structured error for engine operations.
type EngineError struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "fetch_metrics", "run_cycle")
	Err        error  // Underlying error
	StatusCode int    // HTTP status code if applicable
	Timestamp  time.Time
}

func (e *EngineError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is matching for the base error types.
func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Type == ErrorTypeConnectivity
	case ErrBadStatus:
		return e.Type == ErrorTypeRequest
	case ErrCycleFailed:
		return e.Type == ErrorTypeCycle
	}
	return errors.Is(e.Err, target)
}

func newEngineError(errorType ErrorType, op string, err error) *EngineError {
	return &EngineError{
		Type:      errorType,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithStatusCode adds the HTTP status code to the error.
func (e *EngineError) WithStatusCode(code int) *EngineError {
	e.StatusCode = code
	return e
}

// WrapConnectivityError wraps a transport-level failure reaching the service.
func WrapConnectivityError(op string, err error) error {
	return newEngineError(ErrorTypeConnectivity, op, err)
}

// WrapRequestError wraps a non-success HTTP response.
func WrapRequestError(op string, err error, statusCode int) error {
	return newEngineError(ErrorTypeRequest, op, err).WithStatusCode(statusCode)
}

// WrapCycleError wraps a failure inside an in-progress optimization cycle.
func WrapCycleError(op string, err error) error {
	return newEngineError(ErrorTypeCycle, op, err)
}

// IsConnectivityError reports whether err means the service could not be
// reached at all, as opposed to answering badly.
func IsConnectivityError(err error) bool {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Type == ErrorTypeConnectivity
	}
	return errors.Is(err, ErrUnreachable)
}

// Detail extracts the underlying message for user-facing surfaces.
func Detail(err error) string {
	var engErr *EngineError
	if errors.As(err, &engErr) && engErr.Err != nil {
		return engErr.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
