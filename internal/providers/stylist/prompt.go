package stylist

import (
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"

	"outfitgen/internal/domain"
)

// ToneDescriptor maps style intensity onto the wording the model receives.
func ToneDescriptor(intensity int) string {
	switch {
	case intensity <= 3:
		return "classic, safe, and timeless"
	case intensity <= 6:
		return "balanced, stylish, and modern"
	default:
		return "bold, creative, and fashion-forward"
	}
}

// BuildDescriptionPrompt renders the deterministic outfit-recommendation
// prompt from the request preferences. Same request, same prompt.
func BuildDescriptionPrompt(req domain.GenerationRequest) string {
	var brandText, budgetText, conditionsText string
	if len(req.PreferredBrands) > 0 {
		brandText = fmt.Sprintf(" from brands like %s", strings.Join(req.PreferredBrands, ", "))
	}
	if budget := strings.TrimSpace(req.BudgetHint); budget != "" {
		budgetText = fmt.Sprintf(" within a budget of %s", budget)
	}
	if conditions := strings.TrimSpace(req.FreeformConditions); conditions != "" {
		conditionsText = fmt.Sprintf(" Additional requirements: %s.", conditions)
	}

	return fmt.Sprintf(`Create a detailed outfit recommendation for %s.

Style level: %d/10 (%s)
Preferences:%s%s
%s

Provide:
1. Complete outfit description (top, bottom, shoes, accessories)
2. Color palette and why it works
3. Style notes and occasion appropriateness
4. 5-8 specific product recommendations with:
   - Item name and type
   - Color and material
   - Why it works for this outfit
   - Estimated price range

Respond with JSON matching the provided schema.`,
		req.Occasion, req.StyleIntensity, ToneDescriptor(req.StyleIntensity),
		brandText, budgetText, conditionsText)
}

// BuildRatingPrompt renders the outfit-rating prompt.
func BuildRatingPrompt(occasion, budget string) string {
	budgetText := ""
	if b := strings.TrimSpace(budget); b != "" {
		budgetText = fmt.Sprintf(" with a budget of %s", b)
	}

	return fmt.Sprintf(`Analyze this outfit for a %s%s.

Please provide:
1. Wow Factor Score (1-10): Rate the overall visual impact and style
2. Occasion Fitness Score (1-10): How appropriate is this for %s?
3. Overall Rating (1-10): Combined assessment

Then provide detailed feedback including:
- Strengths of the outfit
- Areas for improvement
- Specific suggestions for colors, fit, accessories
- 3-5 shopping recommendations with descriptions
- A humorous "roast" - brutally honest, witty, and playful criticism about the outfit (2-3 sentences, make it funny but not mean-spirited)

Respond with JSON matching the provided schema.`, occasion, budgetText, occasion)
}

func descriptionResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return jsonSchemaFormat("outfit_description", "A structured outfit recommendation.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outfit_summary": map[string]any{"type": "string"},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category":    map[string]any{"type": "string"},
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"color":       map[string]any{"type": "string"},
						"material":    map[string]any{"type": "string"},
						"why":         map[string]any{"type": "string"},
					},
					"required": []string{"category", "name", "description", "color", "material", "why"},
				},
			},
			"color_palette": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"primary":   map[string]any{"type": "string"},
					"secondary": map[string]any{"type": "string"},
					"accent":    map[string]any{"type": "string"},
					"reasoning": map[string]any{"type": "string"},
				},
				"required": []string{"primary", "secondary", "accent", "reasoning"},
			},
			"style_notes": map[string]any{"type": "string"},
			"shopping_list": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"price_range": map[string]any{"type": "string"},
						"priority":    map[string]any{"type": "string"},
					},
					"required": []string{"item", "description", "price_range", "priority"},
				},
			},
		},
		"required": []string{"outfit_summary", "items", "color_palette", "style_notes", "shopping_list"},
	})
}

func ratingResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return jsonSchemaFormat("outfit_rating", "A structured outfit rating.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"wow_factor":                   map[string]any{"type": "integer"},
			"occasion_fitness":             map[string]any{"type": "integer"},
			"overall_rating":               map[string]any{"type": "integer"},
			"wow_factor_explanation":       map[string]any{"type": "string"},
			"occasion_fitness_explanation": map[string]any{"type": "string"},
			"overall_explanation":          map[string]any{"type": "string"},
			"strengths":                    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"improvements":                 map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestions":                  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"roast":                        map[string]any{"type": "string"},
			"shopping_recommendations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"price":       map[string]any{"type": "string"},
						"reason":      map[string]any{"type": "string"},
					},
					"required": []string{"item", "description", "price", "reason"},
				},
			},
		},
		"required": []string{
			"wow_factor", "occasion_fitness", "overall_rating",
			"wow_factor_explanation", "occasion_fitness_explanation", "overall_explanation",
			"strengths", "improvements", "suggestions", "roast", "shopping_recommendations",
		},
	})
}

func jsonSchemaFormat(name, description string, schema map[string]any) openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      schema,
			},
		},
	}
}
