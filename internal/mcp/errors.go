// Package mcp implements the Model Context Protocol (MCP) server for planqa.
package mcp

import (
	"context"
	"errors"
	"fmt"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// Custom MCP error codes for planqa.
const (
	// ErrCodeDocumentNotFound indicates an unknown document ID.
	ErrCodeDocumentNotFound = -32001

	// ErrCodeModelUnavailable indicates the embedding or generation model
	// could not be reached.
	ErrCodeModelUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
// Data carries the structured planqa error when one is available.
type MCPError struct {
	Code    int                   `json:"code"`
	Message string                `json:"message"`
	Data    *planerrors.ErrorBody `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if pe, ok := planerrors.As(err); ok {
		return mapPlanError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		body := planerrors.Body(err)
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
			Data:    &body,
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapPlanError(pe *planerrors.PlanError) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s %s", pe.Message, pe.Suggestion)
	}
	body := planerrors.Body(pe)
	out := &MCPError{Message: message, Data: &body}

	switch pe.Category {
	case planerrors.CategoryValidation:
		out.Code = ErrCodeInvalidParams
	case planerrors.CategoryNetwork:
		if pe.Code == planerrors.ErrCodeNetworkTimeout {
			out.Code = ErrCodeTimeout
		} else {
			out.Code = ErrCodeModelUnavailable
		}
	case planerrors.CategoryIO:
		if pe.Code == planerrors.ErrCodeDocumentNotFound {
			out.Code = ErrCodeDocumentNotFound
		} else {
			out.Code = ErrCodeInternalError
		}
	default:
		out.Code = ErrCodeInternalError
	}
	return out
}
