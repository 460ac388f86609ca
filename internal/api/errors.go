// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeBadRequest writes a 400 with the error text.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeErrorStatus(w, http.StatusBadRequest, err.Error())
}

// writeNotFound writes a 404 Not Found response.
func writeNotFound(w http.ResponseWriter) {
	writeErrorStatus(w, http.StatusNotFound, "not found")
}

// writeServiceUnavailable writes a 503 with the error text.
func writeServiceUnavailable(w http.ResponseWriter, msg string) {
	writeErrorStatus(w, http.StatusServiceUnavailable, msg)
}

// writeInternal hides the cause from clients; callers log it.
func writeInternal(w http.ResponseWriter) {
	writeErrorStatus(w, http.StatusInternalServerError, "internal error")
}
