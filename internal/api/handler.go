// Package api provides shared HTTP handlers and response helpers for the mentor API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/leetmentor/internal/store"
)

// Features reports which optional capabilities the server was started with.
type Features struct {
	Provider string `json:"provider"`
	AI       bool   `json:"ai_enabled"`
	Renderer bool   `json:"renderer_enabled"`
	Videos   bool   `json:"videos_enabled"`
}

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	features Features
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, features Features) *Handler {
	return &Handler{
		repo:     repo,
		features: features,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
