package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/tracker"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Rows    []int  `json:"rows,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps tracker and engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case timeline.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, timeline.ErrSegmentNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, tracker.ErrNoActivity):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrActivityRunning),
		errors.Is(err, tracker.ErrDayClosed),
		errors.Is(err, tracker.ErrEmptyDay):
		return http.StatusConflict
	case tracker.IsPersistence(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeTrackerError replies with the status matching err. Server-side
// failures are logged; client errors are not.
func (s *Server) writeTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	}
	var ve *timeline.ValidationError
	if errors.As(err, &ve) {
		resp.Rows = ve.Rows
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
