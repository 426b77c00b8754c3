package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler writes standardized error responses for HTTP entry points.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteError normalizes err, logs it, and writes the mapped status plus a
// JSON body. Per-item errors attached in Metadata["itemErrors"] are surfaced
// as a structured list so a webhook sender can see every rejected item.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	h.logger.Error("request failed", map[string]interface{}{
		"path":      r.URL.Path,
		"method":    r.Method,
		"status":    status,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})

	resp := errorResponse{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	}
	if items, ok := stdErr.Metadata["itemErrors"].([]string); ok {
		resp.Errors = items
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
