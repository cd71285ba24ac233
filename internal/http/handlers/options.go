package handlers

import (
	"net/http"

	"outfitgen/internal/pipeline"
)

// Options handles GET /api/options with the canonical request choices.
func (a *App) Options(w http.ResponseWriter, r *http.Request) {
	a.ok(w, map[string]any{
		"occasions":     pipeline.Occasions,
		"budget_ranges": pipeline.BudgetRanges,
	})
}
