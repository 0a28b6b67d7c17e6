package common

import (
	"net/http"
	"strconv"
)

// PageParams represents limit/offset pagination parameters
type PageParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPageLimit bounds list responses when the caller gives no limit
const DefaultPageLimit = 100

// ExtractPageParams extracts limit/offset from request query parameters.
// Negative or unparsable values fall back to the defaults.
func ExtractPageParams(r *http.Request) PageParams {
	params := PageParams{Limit: DefaultPageLimit}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l >= 0 {
			params.Limit = l
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			params.Offset = o
		}
	}

	return params
}

// ParseBoolParam interprets query-string booleans the way the API has
// always accepted them: true, 1, on and yes in any case variation.
func ParseBoolParam(value string) bool {
	switch value {
	case "true", "True", "TRUE", "1", "on", "On", "ON", "yes", "Yes", "YES":
		return true
	}
	return false
}
