package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// ErrorResponse wraps every error body the API returns.
type ErrorResponse struct {
	Error planerrors.ErrorBody `json:"error"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if pe, ok := planerrors.As(err); ok {
		switch pe.Code {
		case planerrors.ErrCodeDocumentNotFound:
			return http.StatusNotFound
		case planerrors.ErrCodeUnsupportedFormat, planerrors.ErrCodeNoText:
			return http.StatusBadRequest
		case planerrors.ErrCodeNetworkTimeout:
			return http.StatusGatewayTimeout
		case planerrors.ErrCodeModelUnavailable:
			return http.StatusServiceUnavailable
		}
		if pe.Category == planerrors.CategoryValidation {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// errorHandler renders every error as an ErrorResponse.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := StatusFor(err)
	var body planerrors.ErrorBody
	var he *echo.HTTPError
	if _, ok := planerrors.As(err); !ok && errors.As(err, &he) {
		body = planerrors.ErrorBody{
			Code:     http.StatusText(he.Code),
			Message:  fmt.Sprint(he.Message),
			Category: string(planerrors.CategoryValidation),
		}
		if he.Code >= http.StatusInternalServerError {
			body.Category = string(planerrors.CategoryInternal)
		}
	} else {
		body = planerrors.Body(err)
	}

	if status >= http.StatusInternalServerError {
		req := c.Request()
		slog.Error("http_error",
			append([]any{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
			}, planerrors.LogAttrs(err)...)...)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, ErrorResponse{Error: body})
}

func bodyLimit(maxBytes int64) string {
	// Leave room for the multipart envelope.
	return fmt.Sprintf("%dM", maxBytes>>20+1)
}
