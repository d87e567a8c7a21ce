// Package gen synthesizes the derived parts of a composed schema: node
// relationships, the root query surface and the resolver pipeline.
package gen

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidSchema indicates a type or field that cannot be synthesized.
	ErrInvalidSchema = errors.New("gqlcompose: invalid schema")
	// ErrPhaseFailed indicates a build phase failure.
	ErrPhaseFailed = errors.New("gqlcompose: build phase failed")
)

// SchemaError represents a type or field level synthesis error.
type SchemaError struct {
	Type    string // Type name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("gqlcompose: schema error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(typeName, fieldName, message string, cause error) *SchemaError {
	return &SchemaError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// PhaseError represents a failure inside one build phase.
type PhaseError struct {
	Phase   string // "inference", "relations", "query", etc.
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PhaseError) Error() string {
	var b strings.Builder
	b.WriteString("gqlcompose: build error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.Type != "" {
		b.WriteString(" (type: ")
		b.WriteString(e.Type)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for PhaseError.
func (e *PhaseError) Is(target error) bool {
	return target == ErrPhaseFailed
}

// NewPhaseError creates a new PhaseError.
func NewPhaseError(phase, typeName string, cause error) *PhaseError {
	return &PhaseError{
		Phase: phase,
		Type:  typeName,
		Cause: cause,
	}
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// IsPhaseError returns true if the error is a PhaseError.
func IsPhaseError(err error) bool {
	if err == nil {
		return false
	}
	var e *PhaseError
	return errors.As(err, &e)
}
