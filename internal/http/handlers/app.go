// Package handlers is the thin HTTP surface over the generation pipeline:
// request parsing, defaulting, and the stable JSON response envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"outfitgen/internal/domain"
	"outfitgen/internal/infra"
)

// Generator runs the outfit-image pipeline.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.PipelineResult, error)
}

// Rater scores an existing outfit photo.
type Rater interface {
	RateOutfit(ctx context.Context, imageDataURL, occasion, budget string) (*domain.OutfitRating, error)
}

// App is the handler container with its injected collaborators.
type App struct {
	Pipeline Generator
	Rater    Rater
	Logger   *infra.Logger
}

// NewApp wires the handler container.
func NewApp(pipeline Generator, rater Rater, logger *infra.Logger) *App {
	return &App{Pipeline: pipeline, Rater: rater, Logger: logger}
}

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) ok(w http.ResponseWriter, data any) {
	a.json(w, http.StatusOK, envelope{Success: true, Data: data})
}

// fail translates a pipeline error into the response envelope. The error kind
// and stage travel in details so clients can distinguish "try again later"
// from "this input is rejected"; upstream diagnostics are preserved verbatim.
func (a *App) fail(w http.ResponseWriter, err error) {
	var perr *domain.Error
	if !errors.As(err, &perr) {
		perr = domain.WrapError(domain.KindUpstreamFatal, "internal server error", err, nil)
	}

	details := map[string]any{"kind": string(perr.Kind)}
	if perr.Stage != "" {
		details["stage"] = perr.Stage
	}
	for k, v := range perr.Details {
		details[k] = v
	}

	if a.Logger != nil {
		a.Logger.Error().
			Str("kind", string(perr.Kind)).
			Str("stage", perr.Stage).
			Err(perr.Err).
			Msg(perr.Message)
	}
	a.json(w, perr.StatusCode(), envelope{Success: false, Error: perr.Message, Details: details})
}

func (a *App) badRequest(w http.ResponseWriter, message string, details map[string]any) {
	a.fail(w, domain.NewError(domain.KindValidation, message, details))
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
