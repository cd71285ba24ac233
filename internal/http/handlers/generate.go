package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"outfitgen/internal/domain"
)

const (
	defaultOccasion       = "Casual Outing"
	defaultStyleIntensity = 5
	maxConditionsLength   = 500
)

type generateOutfitRequest struct {
	UserImage  string   `json:"user_image"`
	Occasion   string   `json:"occasion"`
	WowFactor  int      `json:"wow_factor"`
	Brands     []string `json:"brands"`
	Budget     string   `json:"budget"`
	Conditions string   `json:"conditions"`
}

type generateOutfitResponse struct {
	OutfitDescription *domain.OutfitDescription `json:"outfit_description"`
	OutfitImage       string                    `json:"outfit_image"`
	Timings           domain.StageTimings       `json:"timings"`
}

// GenerateOutfit handles POST /api/generate-outfit.
func (a *App) GenerateOutfit(w http.ResponseWriter, r *http.Request) {
	var req generateOutfitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid request payload", nil)
		return
	}
	if strings.TrimSpace(req.UserImage) == "" {
		a.badRequest(w, "no user image provided, image generation requires a user photo", map[string]any{
			"field": "user_image",
		})
		return
	}
	if len(req.Conditions) > maxConditionsLength {
		a.badRequest(w, "conditions text is too long", map[string]any{
			"max_length": maxConditionsLength,
			"provided":   len(req.Conditions),
		})
		return
	}
	if strings.TrimSpace(req.Occasion) == "" {
		req.Occasion = defaultOccasion
	}
	if req.WowFactor == 0 {
		req.WowFactor = defaultStyleIntensity
	}

	result, err := a.Pipeline.Generate(r.Context(), domain.GenerationRequest{
		SourceImage:        req.UserImage,
		Occasion:           req.Occasion,
		StyleIntensity:     req.WowFactor,
		PreferredBrands:    req.Brands,
		BudgetHint:         req.Budget,
		FreeformConditions: req.Conditions,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	a.ok(w, generateOutfitResponse{
		OutfitDescription: result.Description,
		OutfitImage:       result.GeneratedImage,
		Timings:           result.Timings,
	})
}
