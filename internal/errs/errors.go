// Package errs defines the error categories used across the pipeline:
// caller mistakes, missing resources, backend failures, and trace-write
// failures. Handlers map them to HTTP status codes with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid caller input (bad file type, unknown
// provider name, malformed request). Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NotFoundError indicates an unknown document or trace identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the given resource and id.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// CapabilityError wraps a failure from an external capability (embedding,
// LLM, vector index, persistence). The wrapped error is kept for logs but
// must not leak to API clients.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Capability wraps err as a CapabilityError for the named backend.
func Capability(capability string, err error) error {
	return &CapabilityError{Capability: capability, Err: err}
}

// IsCapability reports whether err is a CapabilityError.
func IsCapability(err error) bool {
	var v *CapabilityError
	return errors.As(err, &v)
}

// TraceWriteError is a failed GenerationTrace write. It is logged and
// suppressed by the recorder, never propagated to the query path.
type TraceWriteError struct {
	Err error
}

func (e *TraceWriteError) Error() string {
	return fmt.Sprintf("trace write failed: %v", e.Err)
}

func (e *TraceWriteError) Unwrap() error { return e.Err }
