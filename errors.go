package gqlcompose

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the build error taxonomy.
var (
	// ErrConfiguration is returned for fatal configuration mistakes such as
	// reserved type names or malformed type definitions.
	ErrConfiguration = errors.New("gqlcompose: configuration error")

	// ErrConflict marks a non-fatal conflict. Conflicts are reported and the
	// build continues with a deterministic resolution.
	ErrConflict = errors.New("gqlcompose: conflict")

	// ErrIntegrity is returned when the composed schema breaks an invariant
	// the query surface depends on.
	ErrIntegrity = errors.New("gqlcompose: integrity violation")

	// ErrAmbiguous marks an inference ambiguity. It is never fatal.
	ErrAmbiguous = errors.New("gqlcompose: ambiguous inference")

	// ErrNodeNotFound is returned by stores when a node id is unknown.
	ErrNodeNotFound = errors.New("gqlcompose: node not found")
)

// ConfigurationError represents a fatal configuration error.
type ConfigurationError struct {
	Type    string // Type name (if applicable)
	Source  string // Source location, e.g. "types.graphql:3:1"
	Message string
	Cause   error
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("gqlcompose: configuration error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Source != "" {
		b.WriteString(" (")
		b.WriteString(e.Source)
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
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(typeName, message string, cause error) *ConfigurationError {
	return &ConfigurationError{Type: typeName, Message: message, Cause: cause}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}

// ConflictWarning describes a conflict that was resolved without failing
// the build. It is rendered through Reporter.Warn.
type ConflictWarning struct {
	Type    string
	Field   string // Field name (if applicable)
	Plugin  string // Plugin causing the conflict
	Owner   string // Plugin owning the original definition
	Message string
}

// Error returns the error string.
func (e *ConflictWarning) Error() string {
	target := e.Type
	if e.Field != "" {
		target += "." + e.Field
	}
	if target == "" {
		return "gqlcompose: conflict: " + e.Message
	}
	return fmt.Sprintf("gqlcompose: conflict on %s: %s", target, e.Message)
}

// Is reports whether the target matches ErrConflict.
func (e *ConflictWarning) Is(target error) bool {
	return target == ErrConflict
}

// IsConflict returns true if the error is a ConflictWarning.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *ConflictWarning
	return errors.As(err, &e) || errors.Is(err, ErrConflict)
}

// IntegrityViolation represents a fatal schema integrity error.
type IntegrityViolation struct {
	Types   []string // Offending type names
	Message string
}

// Error returns the error string.
func (e *IntegrityViolation) Error() string {
	if len(e.Types) == 0 {
		return "gqlcompose: integrity violation: " + e.Message
	}
	return fmt.Sprintf("gqlcompose: integrity violation (%s): %s", strings.Join(e.Types, ", "), e.Message)
}

// Is reports whether the target matches ErrIntegrity.
func (e *IntegrityViolation) Is(target error) bool {
	return target == ErrIntegrity
}

// NewIntegrityViolation returns a new IntegrityViolation.
func NewIntegrityViolation(message string, types ...string) *IntegrityViolation {
	return &IntegrityViolation{Types: types, Message: message}
}

// IsIntegrityViolation returns true if the error is an IntegrityViolation.
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	var e *IntegrityViolation
	return errors.As(err, &e) || errors.Is(err, ErrIntegrity)
}

// InferenceAmbiguity describes conflicting value shapes observed at one
// field path. The inferred field falls back to the most permissive type.
type InferenceAmbiguity struct {
	Type     string
	Path     string
	Observed map[string]int // shape name -> occurrences
	Resolved string         // type the field was resolved to
}

// Error returns the error string.
func (e *InferenceAmbiguity) Error() string {
	var parts []string
	for _, k := range SortedKeys(e.Observed) {
		parts = append(parts, fmt.Sprintf("%s(%d)", k, e.Observed[k]))
	}
	return fmt.Sprintf("gqlcompose: conflicting field types on %s.%s: %s; using %s",
		e.Type, e.Path, strings.Join(parts, ", "), e.Resolved)
}

// Is reports whether the target matches ErrAmbiguous.
func (e *InferenceAmbiguity) Is(target error) bool {
	return target == ErrAmbiguous
}

// FatalError is raised by Reporter.Panic. Builders recover it and return
// it as the build error.
type FatalError struct {
	Message string
}

// Error returns the error string.
func (e *FatalError) Error() string {
	return "gqlcompose: fatal: " + e.Message
}

// Is reports whether the target matches ErrIntegrity. Every panic raised
// during a build is an integrity or configuration failure.
func (e *FatalError) Is(target error) bool {
	return target == ErrIntegrity
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "gqlcompose: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("gqlcompose: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
