// Package falcdn uploads local images to the FAL content-delivery service and
// returns a publicly fetchable URL for downstream providers.
package falcdn

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"outfitgen/internal/domain"
	"outfitgen/internal/infra"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("falcdn: api key is required")

const defaultBaseURL = "https://rest.alpha.fal.ai"

// Options configures the FAL CDN client.
type Options struct {
	APIKey         string
	BaseURL        string
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs single-attempt uploads against the FAL storage endpoint.
// Retrying is deliberately left to callers.
type Client struct {
	apiKey string
	http   *resty.Client
	logger *infra.Logger
}

type uploadResponse struct {
	AccessURL string `json:"access_url"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Key "+apiKey)
	return &Client{apiKey: apiKey, http: httpClient, logger: opts.Logger}, nil
}

// Upload pushes the file at path to the CDN and returns its public URL. One
// attempt only; any transport error or non-2xx response fails the call.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", domain.WrapError(domain.KindImageProcessing, "staged image not found", err, nil)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		Post("/storage/upload")
	if err != nil {
		return "", domain.WrapError(domain.KindUpstreamFatal, "failed to upload image to CDN", err, nil)
	}
	if !resp.IsSuccess() {
		return "", domain.NewError(domain.KindUpstreamFatal, "CDN upload rejected", map[string]any{
			"status_code": resp.StatusCode(),
		})
	}

	var decoded uploadResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", domain.WrapError(domain.KindUpstreamFatal, "CDN upload returned an unreadable response", err, nil)
	}
	url := strings.TrimSpace(decoded.AccessURL)
	if url == "" {
		return "", domain.NewError(domain.KindUpstreamFatal, "CDN upload returned no access URL", nil)
	}

	if c.logger != nil {
		c.logger.Debug().Str("url", url).Msg("falcdn: uploaded image")
	}
	return url, nil
}
