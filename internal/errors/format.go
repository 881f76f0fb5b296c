package errors

import (
	"encoding/json"
	"strings"
)

// toPlanError returns err as a PlanError, wrapping plain errors as internal.
func toPlanError(err error) *PlanError {
	if pe, ok := As(err); ok {
		return pe
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForCLI renders err for terminal output:
//
//	Error: document abc not found
//	  Hint: Run 'planqa list' to see ingested documents
//	  Code: ERR_206_DOCUMENT_NOT_FOUND
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	pe := toPlanError(err)

	var sb strings.Builder
	sb.WriteString("Error: " + pe.Message + "\n")
	if pe.Suggestion != "" {
		sb.WriteString("  Hint: " + pe.Suggestion + "\n")
	}
	sb.WriteString("  Code: " + pe.Code + "\n")
	return sb.String()
}

// ErrorBody is the JSON shape returned by the HTTP API and MCP tools.
type ErrorBody struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// Body converts err into an ErrorBody.
func Body(err error) ErrorBody {
	pe := toPlanError(err)
	return ErrorBody{
		Code:       pe.Code,
		Message:    pe.Message,
		Category:   string(pe.Category),
		Details:    pe.Details,
		Suggestion: pe.Suggestion,
		Retryable:  pe.Retryable,
	}
}

// FormatJSON marshals Body(err). A nil error marshals to null.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(Body(err))
}

// LogAttrs returns slog key-value pairs describing err.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	pe, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}
	attrs := []any{
		"error_code", pe.Code,
		"error", pe.Message,
		"category", string(pe.Category),
		"retryable", pe.Retryable,
	}
	if pe.Cause != nil {
		attrs = append(attrs, "cause", pe.Cause.Error())
	}
	for k, v := range pe.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
