package http

import (
	"encoding/json"
	"net/http"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
)

// WriteJSON sends data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:wrapcheck
	return json.NewEncoder(w).Encode(data)
}

// WriteError sends a JSON error response of the form {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, domain.ErrorResponse{Error: message})
}

func writeErrorLogged(w http.ResponseWriter, r *http.Request, log logging.Logger, status int) {
	if err := WriteError(w, status, http.StatusText(status)); err != nil {
		log.ErrorContext(r.Context(), "write error response failed", "error", err)
	}
}
