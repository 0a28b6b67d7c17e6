package common

import (
	"encoding/json"
	"net/http"

	"github.com/molsearch/molsearch/pkg/apperrors"
)

// ErrorDetail is the body of every error response
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response with a detail message
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondJSON(w, status, ErrorDetail{Detail: detail})
}

// RespondAppError maps an application error onto its HTTP status.
// Errors without a kind become opaque 500s so store internals never
// leak to clients.
func RespondAppError(w http.ResponseWriter, err error) {
	if appErr := apperrors.Get(err); appErr != nil {
		RespondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	RespondError(w, http.StatusInternalServerError, "internal server error")
}

// ParseJSONBody parses a JSON request body with a size limit
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}
