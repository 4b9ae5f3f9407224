package server

import (
	"encoding/json"
	"net/http"
)

// Response bodies for the JSON routes.
const (
	msgUnauthorized    = "Unauthorized"
	msgPromptRequired  = "Prompt is required"
	msgGenerateFailed  = "Failed to generate text"
	msgTooManyRequests = "Too many requests"
	msgInternal        = "Internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}
