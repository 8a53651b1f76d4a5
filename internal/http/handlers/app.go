package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"snapcaption/internal/pipeline"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Pipeline       *pipeline.Pipeline
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

func NewApp(p *pipeline.Pipeline, maxUploadBytes int64, logger zerolog.Logger) *App {
	return &App{Pipeline: p, MaxUploadBytes: maxUploadBytes, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message, details string) {
	a.json(w, code, errorResponse{Error: message, Details: details})
}
