package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kristinelam/gotransit"
)

// setupCORS sets up CORS headers
func setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// preflight answers OPTIONS and rejects anything but POST. It reports whether
// the request should be handled further.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	setupCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps evaluation errors to HTTP status codes. Errors caused by the
// request are client errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gotransit.ErrInvalidData),
		errors.Is(err, gotransit.ErrInvalidOrbit),
		errors.Is(err, gotransit.ErrInvalidParams),
		errors.Is(err, gotransit.ErrLDCCount),
		errors.Is(err, gotransit.ErrUnknownModel),
		errors.Is(err, gotransit.ErrRadiusRatioOutOfRange),
		errors.Is(err, gotransit.ErrTableNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
