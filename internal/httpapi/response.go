package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/streamhub/corehub/internal/apierror"
)

// wireError is the fixed `{error: {id, message, data?}}` envelope used for
// every non-2xx response.
type wireError struct {
	ID      string         `json:"id"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// JSON writes data as a status-coded JSON body.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError maps err onto its canonical kind→status table and writes the
// `{error: {...}}` envelope. A non-*apierror.Error is treated as
// unclassified and surfaced as a 500.
func WriteError(w http.ResponseWriter, err error) {
	var ae *apierror.Error
	if !errors.As(err, &ae) {
		ae = apierror.Unexpected("unclassified error", err)
	}

	log.Error().Err(err).Str("kind", string(ae.ErrKind)).Int("status", ae.Status()).Msg("request failed")

	JSON(w, ae.Status(), map[string]wireError{
		"error": {ID: string(ae.ErrKind), Message: ae.Message, Data: ae.Data},
	})
}
