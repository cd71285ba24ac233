package domain

import "time"

// GenerationRequest carries a user photo plus styling preferences into the
// pipeline. SourceImage is either a base64 data URL or an absolute http(s)
// URL reachable by the providers.
type GenerationRequest struct {
	SourceImage        string
	Occasion           string
	StyleIntensity     int
	PreferredBrands    []string
	BudgetHint         string
	FreeformConditions string
}

// OutfitItem is a single garment or accessory in a recommendation.
type OutfitItem struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Material    string `json:"material"`
	Why         string `json:"why"`
}

// ColorPalette explains the colour story of a recommendation.
type ColorPalette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
	Reasoning string `json:"reasoning"`
}

// ShoppingItem is a purchasable suggestion with a priority hint.
type ShoppingItem struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	PriceRange  string `json:"price_range"`
	Priority    string `json:"priority"`
}

// OutfitDescription is the structured result of the description stage. It is
// produced once per request and never mutated afterwards; only the prompt
// builder consumes it downstream.
type OutfitDescription struct {
	Summary      string         `json:"outfit_summary"`
	Items        []OutfitItem   `json:"items"`
	ColorPalette ColorPalette   `json:"color_palette"`
	StyleNotes   string         `json:"style_notes"`
	ShoppingList []ShoppingItem `json:"shopping_list"`
}

// ShoppingRecommendation is a rater suggestion for improving an outfit.
type ShoppingRecommendation struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Reason      string `json:"reason"`
}

// OutfitRating is the structured verdict on a submitted outfit photo.
type OutfitRating struct {
	WowFactor                  int                      `json:"wow_factor"`
	OccasionFitness            int                      `json:"occasion_fitness"`
	OverallRating              int                      `json:"overall_rating"`
	WowFactorExplanation       string                   `json:"wow_factor_explanation"`
	OccasionFitnessExplanation string                   `json:"occasion_fitness_explanation"`
	OverallExplanation         string                   `json:"overall_explanation"`
	Strengths                  []string                 `json:"strengths"`
	Improvements               []string                 `json:"improvements"`
	Suggestions                []string                 `json:"suggestions"`
	Roast                      string                   `json:"roast"`
	ShoppingRecommendations    []ShoppingRecommendation `json:"shopping_recommendations"`
}

// JobState tracks a synthesis job through its lifecycle.
type JobState string

const (
	JobSubmitted  JobState = "submitted"
	JobProcessing JobState = "processing"
	JobSucceeded  JobState = "succeeded"
	JobFailed     JobState = "failed"
	JobTimedOut   JobState = "timed_out"
)

// SynthesisJob is the in-memory record of one provider job. It lives only for
// the duration of the request that created it.
type SynthesisJob struct {
	JobID       string
	SubmittedAt time.Time
	State       JobState
	ResultURL   string
	ErrorDetail string
}

// Terminal reports whether the job can make no further transitions.
func (j *SynthesisJob) Terminal() bool {
	switch j.State {
	case JobSucceeded, JobFailed, JobTimedOut:
		return true
	}
	return false
}

// StageTimings records per-stage wall-clock durations for observability.
type StageTimings struct {
	Describe   time.Duration `json:"describe_ms"`
	Upload     time.Duration `json:"upload_ms"`
	Synthesize time.Duration `json:"synthesize_ms"`
	Optimize   time.Duration `json:"optimize_ms"`
}

// PipelineResult is the composite outcome handed back to the route layer.
// The orchestrator owns it exclusively until returned; no stage retains a
// reference.
type PipelineResult struct {
	Description    *OutfitDescription
	GeneratedImage string
	Timings        StageTimings
}
