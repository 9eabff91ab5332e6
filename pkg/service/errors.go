package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names an entity the service
// does not know. Searches in the assembly model never surface this; it
// indicates a request against a deleted or foreign ID.
var ErrNotFound = errors.New("service: entity not found")

// Reason classifies semantic failures so callers can branch without
// string matching.
type Reason string

const (
	// ReasonEmptyResult: a boolean operation produced empty or
	// topologically invalid geometry.
	ReasonEmptyResult Reason = "empty-result"
	// ReasonNotSurface: a surface-only operation was applied to a solid.
	ReasonNotSurface Reason = "not-a-surface"
	// ReasonStaleReference: the entity was deleted earlier.
	ReasonStaleReference Reason = "stale-reference"
	// ReasonInvalidArgument: a parameter violates the operation contract
	// (non-unit direction, negative distance, empty profile).
	ReasonInvalidArgument Reason = "invalid-argument"
)

// SemanticError reports an operation that is invalid given the current
// entity state. The remote service stays untouched by such calls.
type SemanticError struct {
	Reason  Reason
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("service: %s: %s", e.Reason, e.Message)
}

// Semanticf builds a SemanticError with a formatted message.
func Semanticf(reason Reason, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsSemantic unwraps err into a SemanticError if it is one.
func AsSemantic(err error) (*SemanticError, bool) {
	var se *SemanticError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsStale reports whether err is a stale-reference semantic error.
func IsStale(err error) bool {
	se, ok := AsSemantic(err)
	return ok && se.Reason == ReasonStaleReference
}

// TransportError reports that the service could not be reached or the
// connection failed mid-call. It is never retried by this layer and is
// always distinguishable from a SemanticError.
type TransportError struct {
	Op  string // which call failed
	Err error  // underlying network error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("service: transport failure in %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transportf wraps an underlying network error for the named operation.
func Transportf(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
