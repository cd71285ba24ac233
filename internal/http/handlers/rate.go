package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type rateOutfitRequest struct {
	Image    string `json:"image"`
	Occasion string `json:"occasion"`
	Budget   string `json:"budget"`
}

// RateOutfit handles POST /api/rate-outfit.
func (a *App) RateOutfit(w http.ResponseWriter, r *http.Request) {
	var req rateOutfitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid request payload", nil)
		return
	}
	if strings.TrimSpace(req.Occasion) == "" {
		req.Occasion = defaultOccasion
	}

	rating, err := a.Rater.RateOutfit(r.Context(), req.Image, req.Occasion, req.Budget)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, rating)
}
