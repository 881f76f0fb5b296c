package errors

import (
	"errors"
	"fmt"
)

// PlanError is the structured error returned across package boundaries.
// Surfaces render it with FormatForCLI or FormatJSON.
type PlanError struct {
	Code       string            // e.g. "ERR_206_DOCUMENT_NOT_FOUND"
	Message    string            // Human-readable
	Category   Category          // Derived from Code
	Severity   Severity          // Derived from Code
	Details    map[string]string // Extra context such as a document ID
	Cause      error
	Retryable  bool
	Suggestion string // What the user can do about it
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause so errors.Is and errors.As see through PlanError.
func (e *PlanError) Unwrap() error {
	return e.Cause
}

// Is matches another PlanError by code.
func (e *PlanError) Is(target error) bool {
	if t, ok := target.(*PlanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns e for chaining.
func (e *PlanError) WithDetail(key, value string) *PlanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the user-facing hint and returns e for chaining.
func (e *PlanError) WithSuggestion(suggestion string) *PlanError {
	e.Suggestion = suggestion
	return e
}

// New creates a PlanError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *PlanError {
	return &PlanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PlanError carrying err's message. Wrap(code, nil) is nil.
func Wrap(code string, err error) *PlanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError reports bad caller input.
func ValidationError(message string, cause error) *PlanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError reports an unknown document ID.
func NotFoundError(documentID string, cause error) *PlanError {
	return New(ErrCodeDocumentNotFound, fmt.Sprintf("document %s not found", documentID), cause).
		WithDetail("document_id", documentID).
		WithSuggestion("Run 'planqa list' to see ingested documents")
}

// ModelError reports an unreachable or failing model backend.
func ModelError(message string, cause error) *PlanError {
	return New(ErrCodeModelUnavailable, message, cause).
		WithSuggestion("Start Ollama with 'ollama serve' or set embeddings.provider: hash")
}

// InternalError reports an unexpected failure.
func InternalError(message string, cause error) *PlanError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first PlanError in err's chain.
func As(err error) (*PlanError, bool) {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether any PlanError in err's chain is retryable.
func IsRetryable(err error) bool {
	pe, ok := As(err)
	return ok && pe.Retryable
}

// GetCode returns the code of the first PlanError in err's chain, or "".
func GetCode(err error) string {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}

// GetCategory returns the category of the first PlanError in err's chain, or "".
func GetCategory(err error) Category {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return ""
}
