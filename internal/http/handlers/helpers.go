package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const userIDHeader = "X-User-ID"

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireUserID extracts the authenticated user id set by the edge proxy.
// A zero return means the response has already been written.
func requireUserID(w http.ResponseWriter, r *http.Request) int64 {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing user id header")
		return 0
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0
	}
	return userID
}
