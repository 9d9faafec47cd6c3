package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/harunnryd/shukan/internal/engine"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(ErrorResponse{Error: "internal server error", Code: "ErrInternal"})
	if err != nil {
		panic(fmt.Sprintf("marshal fallback error response: %v", err))
	}
}

// writeJSON marshals before touching headers so an encoding failure can
// still become a clean 500.
func writeJSON(w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		data = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps err through the error taxonomy.
func writeError(w http.ResponseWriter, err error) {
	status := shukanErrors.HTTPStatus(err)
	code := shukanErrors.Category(err)
	if errors.Is(err, engine.ErrClosed) {
		status = http.StatusServiceUnavailable
		code = "ErrUnavailable"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "status", status)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return shukanErrors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
