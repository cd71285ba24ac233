package pipeline

import (
	"fmt"
	"strings"

	"outfitgen/internal/domain"
)

// Occasions is the canonical list offered to clients.
var Occasions = []string{
	"Casual",
	"Formal",
	"Business",
	"Party",
	"Wedding",
	"Date Night",
	"Gym",
	"Beach",
	"Travel",
	"Job Interview",
	"Casual Outing",
	"Formal Event",
	"Business Meeting",
	"Professional/Formal",
	"Wedding Guest",
	"Garden Party",
	"Beach/Resort",
	"Gym/Athletic",
	"Party/Club",
	"Halloween",
}

// BudgetRanges is the canonical list of budget hints offered to clients.
var BudgetRanges = []string{
	"Under $50",
	"$50-$100",
	"$100-$200",
	"$200-$500",
	"Above $500",
	"No budget limit",
}

// backgroundMap pairs occasions with a scene for the synthesized photo.
var backgroundMap = map[string]string{
	"Job Interview":       "professional office lobby with modern corporate interior",
	"Casual Outing":       "trendy urban street with stylish storefronts and natural daylight",
	"Formal Event":        "elegant ballroom with chandeliers and sophisticated ambiance",
	"Date Night":          "upscale restaurant interior with romantic lighting",
	"Business Meeting":    "contemporary conference room with glass walls",
	"Professional/Formal": "elegant professional setting with modern corporate interior or sophisticated ballroom ambiance",
	"Wedding Guest":       "beautiful outdoor garden venue with floral decorations",
	"Garden Party":        "elegant outdoor garden party setting with lush greenery, flowers, and natural daylight",
	"Beach/Resort":        "pristine sandy beach with turquoise ocean water and tropical scenery",
	"Gym/Athletic":        "modern fitness center or outdoor athletic track",
	"Party/Club":          "stylish nightclub interior with ambient lighting",
	"Halloween":           "festive Halloween party setting with atmospheric decorations",
	"Travel":              "airport terminal or scenic travel destination",
}

const defaultBackground = "elegant neutral backdrop with natural lighting"

// BackgroundFor resolves the scene description for an occasion.
func BackgroundFor(occasion string) string {
	if background, ok := backgroundMap[strings.TrimSpace(occasion)]; ok {
		return background
	}
	return defaultBackground
}

// OutfitDetails flattens the structured description into the clause the
// synthesis prompt embeds: one "<description> in <color>" fragment per item.
func OutfitDetails(description *domain.OutfitDescription) string {
	if description == nil {
		return ""
	}
	fragments := make([]string, 0, len(description.Items))
	for _, item := range description.Items {
		fragments = append(fragments, fmt.Sprintf("%s in %s", item.Description, item.Color))
	}
	return strings.Join(fragments, " ")
}

// BuildSynthesisPrompt renders the image-to-image instruction. The wording
// pins the subject's face and features so the provider re-dresses the person
// instead of inventing a new one.
func BuildSynthesisPrompt(outfitDetails, occasion, background string) string {
	return fmt.Sprintf(`Transform this person wearing %s.
Setting: %s.
Occasion: %s.
Keep the same person's face and features exactly as in the original image. Natural pose appropriate for %s, facial expression matching the formality.
Photorealistic, professional fashion photography, magazine quality, 3/4 body shot with professional studio lighting.`,
		outfitDetails, background, occasion, occasion)
}
