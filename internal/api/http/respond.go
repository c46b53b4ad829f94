package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/itembased/examdesk/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAuthError answers a credential failure with its code and display text.
// Anything that is not a credential error is a backend failure.
func writeAuthError(w http.ResponseWriter, err error) {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		writeError(w, http.StatusServiceUnavailable, "account service unavailable, try again")
		return
	}
	status := http.StatusBadRequest
	switch ae.Code {
	case auth.CodeUserNotFound, auth.CodeWrongPassword:
		status = http.StatusUnauthorized
	case auth.CodeEmailInUse:
		status = http.StatusConflict
	case auth.CodeProfileWriteFailed:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"code": ae.Code, "message": auth.MessageFor(ae.Code)})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
