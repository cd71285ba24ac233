// Package stylist produces structured outfit descriptions and outfit ratings
// through the OpenAI chat completions API. It owns the retry policy for that
// provider: transient failures are retried with backoff, authentication and
// schema failures are not.
package stylist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"outfitgen/internal/domain"
	"outfitgen/internal/infra"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("stylist: api key is required")

const (
	defaultModel      = "gpt-4o"
	defaultMaxTokens  = 1500
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// Options configures the stylist client.
type Options struct {
	APIKey         string
	Model          string
	BaseURL        string
	Organization   string
	Logger         *infra.Logger
	HTTPClient     *http.Client
	MaxRetries     int
	RetryBaseDelay time.Duration
	MaxTokens      int64
}

// Client wraps the OpenAI SDK with the pipeline's error taxonomy.
type Client struct {
	api        openai.Client
	model      string
	maxTokens  int64
	maxRetries int
	baseDelay  time.Duration
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	// The SDK's own retry loop is disabled so this client stays the single
	// owner of the backoff policy.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimRight(opts.BaseURL, "/"); baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if org := strings.TrimSpace(opts.Organization); org != "" {
		reqOpts = append(reqOpts, option.WithOrganization(org))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		api:        openai.NewClient(reqOpts...),
		model:      model,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     opts.Logger,
	}, nil
}

// GenerateDescription asks the model for a complete outfit recommendation.
// When the request carries a reference photo it is attached to the same call
// for personalization.
func (c *Client) GenerateDescription(ctx context.Context, req domain.GenerationRequest) (*domain.OutfitDescription, error) {
	occasion := strings.TrimSpace(req.Occasion)
	if occasion == "" {
		return nil, domain.NewError(domain.KindValidation, "occasion is required", nil)
	}
	if req.StyleIntensity < 1 || req.StyleIntensity > 10 {
		return nil, domain.NewError(domain.KindValidation, "style intensity must be between 1 and 10", map[string]any{
			"provided": req.StyleIntensity,
		})
	}

	prompt := BuildDescriptionPrompt(req)
	var message openai.ChatCompletionMessageParamUnion
	if photo := strings.TrimSpace(req.SourceImage); photo != "" {
		message = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: photo}),
		})
	} else {
		message = openai.UserMessage(prompt)
	}

	content, err := c.completeWithRetry(ctx, openai.ChatCompletionNewParams{
		Model:          openai.ChatModel(c.model),
		Messages:       []openai.ChatCompletionMessageParamUnion{message},
		MaxTokens:      openai.Int(c.maxTokens),
		ResponseFormat: descriptionResponseFormat(),
	})
	if err != nil {
		return nil, err
	}

	var description domain.OutfitDescription
	if err := json.Unmarshal([]byte(content), &description); err != nil {
		// Retrying a non-deterministic endpoint on a parse failure would
		// mask a systemic schema mismatch, so this is terminal.
		return nil, domain.WrapError(domain.KindUpstreamFatal, "invalid JSON response from generation engine", err, map[string]any{
			"parse_error": err.Error(),
		})
	}
	return &description, nil
}

// RateOutfit scores a submitted outfit photo for an occasion.
func (c *Client) RateOutfit(ctx context.Context, imageDataURL, occasion, budget string) (*domain.OutfitRating, error) {
	if strings.TrimSpace(imageDataURL) == "" {
		return nil, domain.NewError(domain.KindValidation, "no image provided", nil)
	}
	if !strings.HasPrefix(imageDataURL, "data:image") {
		return nil, domain.NewError(domain.KindValidation, "invalid image format", map[string]any{
			"expected": "data:image/...;base64,...",
		})
	}
	if strings.TrimSpace(occasion) == "" {
		return nil, domain.NewError(domain.KindValidation, "occasion is required", nil)
	}

	content, err := c.completeWithRetry(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(BuildRatingPrompt(occasion, budget)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageDataURL}),
			}),
		},
		MaxTokens:      openai.Int(c.maxTokens),
		ResponseFormat: ratingResponseFormat(),
	})
	if err != nil {
		return nil, err
	}

	var rating domain.OutfitRating
	if err := json.Unmarshal([]byte(content), &rating); err != nil {
		return nil, domain.WrapError(domain.KindUpstreamFatal, "invalid JSON response from generation engine", err, map[string]any{
			"parse_error": err.Error(),
		})
	}
	return &rating, nil
}

// completeWithRetry performs one chat completion with the stage's bounded
// retry policy: transient provider errors back off and retry, authentication
// errors fail immediately as configuration problems, other explicit provider
// rejections fail immediately with detail preserved.
func (c *Client) completeWithRetry(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		res, err := c.api.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(res.Choices) == 0 {
				return "", domain.NewError(domain.KindUpstreamFatal, "generation engine returned no choices", nil)
			}
			content := strings.TrimSpace(res.Choices[0].Message.Content)
			if content == "" {
				return "", domain.NewError(domain.KindUpstreamFatal, "generation engine returned an empty response", nil)
			}
			return content, nil
		}

		kind := classify(err)
		if kind != domain.KindUpstreamTransient {
			return "", domain.WrapError(kind, "generation engine rejected the request", err, map[string]any{
				"error": err.Error(),
			})
		}

		lastErr = err
		if c.logger != nil {
			c.logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", c.maxRetries).
				Err(err).
				Msg("stylist: transient provider error")
		}
		if attempt == c.maxRetries {
			break
		}
		if err := sleepCtx(ctx, RetryDelay(c.baseDelay, attempt)); err != nil {
			return "", domain.WrapError(domain.KindUpstreamTransient, "generation canceled while backing off", err, nil)
		}
	}

	return "", domain.WrapError(domain.KindUpstreamTransient, "generation engine call failed after retries", lastErr, map[string]any{
		"attempts":   c.maxRetries,
		"last_error": lastErr.Error(),
	})
}

// RetryDelay is the backoff before the next attempt: base delay scaled by the
// attempt number, so it grows monotonically.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}

// classify maps SDK errors onto the pipeline taxonomy.
func classify(err error) domain.Kind {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusUnauthorized || apierr.StatusCode == http.StatusForbidden:
			return domain.KindConfiguration
		case apierr.StatusCode == http.StatusTooManyRequests || apierr.StatusCode == http.StatusRequestTimeout:
			return domain.KindUpstreamTransient
		case apierr.StatusCode >= 500:
			return domain.KindUpstreamTransient
		default:
			return domain.KindUpstreamFatal
		}
	}
	// No structured API error means the request never completed: a timeout
	// or connection failure.
	return domain.KindUpstreamTransient
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
