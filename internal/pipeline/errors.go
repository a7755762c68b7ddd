package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType int

const (
	// ErrLoad: the input catalog could not be read or parsed. Fatal.
	ErrLoad ErrorType = iota
	// ErrAmbiguousLanguage: no source language given and none detectable. Fatal.
	ErrAmbiguousLanguage
	// ErrConfig: invalid run configuration. Fatal.
	ErrConfig
	// ErrPersistence: a snapshot could not be written. Degraded, not fatal.
	ErrPersistence
	ErrUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrLoad:
		return "LOAD"
	case ErrAmbiguousLanguage:
		return "AMBIGUOUS_LANGUAGE"
	case ErrConfig:
		return "CONFIG"
	case ErrPersistence:
		return "PERSISTENCE"
	default:
		return "UNKNOWN"
	}
}

// RunError carries a typed failure with optional context pairs.
type RunError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *RunError {
	return &RunError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *RunError {
	return &RunError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *RunError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

func (e *RunError) WithContext(key string, value any) *RunError {
	e.Context[key] = value
	return e
}

// IsFatal reports whether err should abort the run with a non-zero exit.
// Load, language-resolution and config failures are fatal; everything else
// degrades into the summary.
func IsFatal(err error) bool {
	var runErr *RunError
	if !errors.As(err, &runErr) {
		return false
	}
	switch runErr.Type {
	case ErrLoad, ErrAmbiguousLanguage, ErrConfig:
		return true
	}
	return false
}
