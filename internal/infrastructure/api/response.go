package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

const defaultSuccessMessage = "Request successful"

// SuccessEnvelope wraps every successful JSON response
type SuccessEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope is the body of every failed response
type ErrorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Errors     any    `json:"errors,omitempty"`
}

var now = time.Now

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteSuccess writes a success envelope. An empty message falls back to the
// default.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	if message == "" {
		message = defaultSuccessMessage
	}
	writeJSON(w, status, SuccessEnvelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
	})
}

// WriteError maps err to its status and writes an error envelope.
// Unclassified errors are reported as 500 without their internal message.
func WriteError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	de, ok := domain.AsError(err)
	if !ok {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			de = domain.NewClientError("request body too large")
			de.Status = http.StatusRequestEntityTooLarge
		} else {
			logger.Error().Err(err).Msg("Unhandled request error")
			writeJSON(w, http.StatusInternalServerError, ErrorEnvelope{
				StatusCode: http.StatusInternalServerError,
				Message:    "Internal server error",
			})
			return
		}
	}

	status := de.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(de.Kind)).Msg("Request failed")
	}
	writeJSON(w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    de.Message,
		Errors:     de.Details,
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return domain.NewClientError("invalid JSON body: " + err.Error())
	}
	return nil
}
