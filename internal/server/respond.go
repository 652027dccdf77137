package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string      `json:"error"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status and error body. Untyped errors
// are reported as INTERNAL without leaking their text.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", "error", err)
		appErr = apperr.Wrap(apperr.CodeInternal, "Server error", err)
	}

	body := errorBody{Error: appErr.Message, Code: appErr.Code}
	// Provider failures carry the upstream message for diagnostics.
	if appErr.Code == apperr.CodeProviderFailed && appErr.Cause != nil {
		body.Message = appErr.Cause.Error()
	}
	writeJSON(w, appErr.HTTPStatus(), body)
}

// decodeJSON reads a capped JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation("Request body too large")
	}
	return apperr.Validation("Invalid JSON body")
}
