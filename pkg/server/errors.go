package server

import (
	"errors"
	"fmt"
)

// ErrorClass groups failures by how the server reacts to them.
type ErrorClass int

const (
	// ClassTransport covers bind, accept, read and write failures.
	ClassTransport ErrorClass = iota
	// ClassProtocol covers malformed frames and unknown commands.
	ClassProtocol
	// ClassHardware covers failures reported by the scope or the network
	// configurator.
	ClassHardware
	// ClassDiscovery covers advertisement failures.
	ClassDiscovery
	// ClassLifecycle covers failed state transitions.
	ClassLifecycle
)

// String returns the string representation of ErrorClass.
func (c ErrorClass) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassProtocol:
		return "protocol"
	case ClassHardware:
		return "hardware"
	case ClassDiscovery:
		return "discovery"
	case ClassLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// Standard errors.
var (
	ErrNoHardware     = errors.New("hardware controller is required")
	ErrAlreadyRunning = errors.New("state machine already running")
	ErrDestroyed      = errors.New("server destroyed")
	ErrBadPayload     = errors.New("malformed payload")
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class ErrorClass
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Class, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// classify wraps err. A nil err stays nil.
func classify(class ErrorClass, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Op: op, Err: err}
}

// ClassOf returns the class of the outermost ClassifiedError in err's chain.
func ClassOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsClass reports whether err is classified as class.
func IsClass(err error, class ErrorClass) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}
