// Package nanobanana drives the asynchronous NanoBanana image synthesis API:
// submit a job, poll its status on a fixed cadence up to a hard cap, then
// fetch the finished image.
package nanobanana

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"outfitgen/internal/domain"
	"outfitgen/internal/infra"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("nanobanana: api key is required")

const (
	defaultBaseURL         = "https://api.nanobananaapi.ai/api/v1/nanobanana"
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 60

	// Wire value as published by the provider, misspelling included.
	taskTypeImageToImage = "IMAGETOIAMGE"

	// Portrait framing suits full-body fashion shots.
	defaultImageSize = "3:4"

	// The provider requires a callback URL even when the caller polls.
	dummyCallbackURL = "https://webhook.site/dummy"
)

// pollOutcome separates the reasons a poll iteration does not finish the job.
// Still-processing and transport hiccups both keep the loop alive, but they
// are distinct conditions and are logged as such.
type pollOutcome int

const (
	outcomeProcessing pollOutcome = iota
	outcomeTransportError
	outcomeMissingResult
	outcomeReady
	outcomeFailed
)

// Options configures the NanoBanana client.
type Options struct {
	APIKey          string
	BaseURL         string
	Logger          *infra.Logger
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Client performs HTTP calls against the NanoBanana task API.
type Client struct {
	apiKey          string
	http            *resty.Client
	download        *resty.Client
	logger          *infra.Logger
	pollInterval    time.Duration
	maxPollAttempts int
}

type submitRequest struct {
	Prompt      string   `json:"prompt"`
	Type        string   `json:"type"`
	ImageURLs   []string `json:"imageUrls"`
	NumImages   int      `json:"numImages"`
	ImageSize   string   `json:"image_size"`
	CallBackURL string   `json:"callBackUrl"`
}

type submitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type statusResponse struct {
	Code int `json:"code"`
	Data struct {
		SuccessFlag  *int   `json:"successFlag"`
		ErrorMessage string `json:"errorMessage"`
		Response     struct {
			ResultImageURL string `json:"resultImageUrl"`
		} `json:"response"`
	} `json:"data"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
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
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := opts.MaxPollAttempts
	if attempts <= 0 {
		attempts = defaultMaxPollAttempts
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")
	// Result URLs point at an arbitrary delivery host, so the download
	// client carries no credentials.
	downloadClient := resty.New().
		SetTimeout(timeout)
	return &Client{
		apiKey:          apiKey,
		http:            httpClient,
		download:        downloadClient,
		logger:          opts.Logger,
		pollInterval:    interval,
		maxPollAttempts: attempts,
	}, nil
}

// Submit enqueues an image-to-image job and returns its in-memory record.
// Submission failures are fatal at this layer; they indicate a bad request or
// a provider outage, neither of which a blind retry fixes.
func (c *Client) Submit(ctx context.Context, prompt, imageURL string) (*domain.SynthesisJob, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewError(domain.KindValidation, "synthesis prompt is required", nil)
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, domain.NewError(domain.KindValidation, "source image URL is required", nil)
	}

	payload := submitRequest{
		Prompt:      prompt,
		Type:        taskTypeImageToImage,
		ImageURLs:   []string{imageURL},
		NumImages:   1,
		ImageSize:   defaultImageSize,
		CallBackURL: dummyCallbackURL,
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/generate")
	if err != nil {
		return nil, domain.WrapError(domain.KindUpstreamFatal, "failed to reach synthesis engine", err, nil)
	}
	if !resp.IsSuccess() {
		return nil, domain.NewError(domain.KindUpstreamFatal, "synthesis submission rejected", map[string]any{
			"status_code": resp.StatusCode(),
		})
	}

	var decoded submitResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, domain.WrapError(domain.KindUpstreamFatal, "synthesis submission returned an unreadable response", err, nil)
	}
	if decoded.Code != 200 {
		return nil, domain.NewError(domain.KindUpstreamFatal, "synthesis submission failed", map[string]any{
			"provider_code":    decoded.Code,
			"provider_message": decoded.Msg,
		})
	}
	taskID := strings.TrimSpace(decoded.Data.TaskID)
	if taskID == "" {
		return nil, domain.NewError(domain.KindUpstreamFatal, "synthesis submission returned no task id", nil)
	}

	if c.logger != nil {
		c.logger.Info().Str("task_id", taskID).Msg("nanobanana: task submitted")
	}
	return &domain.SynthesisJob{
		JobID:       taskID,
		SubmittedAt: time.Now(),
		State:       domain.JobSubmitted,
	}, nil
}

// PollUntilComplete drives the job to a terminal state and returns the result
// URL on success. Transport errors and still-processing responses keep the
// loop alive; an explicit provider failure aborts immediately; exhausting the
// attempt cap yields a timeout error. The loop stops as soon as ctx is done.
func (c *Client) PollUntilComplete(ctx context.Context, job *domain.SynthesisJob) (string, error) {
	// A terminal job has nothing left to poll.
	if job.Terminal() {
		if job.State == domain.JobSucceeded && job.ResultURL != "" {
			return job.ResultURL, nil
		}
		return "", domain.NewError(domain.KindUpstreamFatal, "synthesis job already finished", map[string]any{
			"task_id": job.JobID,
			"state":   string(job.State),
		})
	}

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			job.State = domain.JobFailed
			job.ErrorDetail = ctx.Err().Error()
			return "", domain.WrapError(domain.KindUpstreamFatal, "synthesis polling canceled", ctx.Err(), map[string]any{
				"task_id": job.JobID,
			})
		case <-timer.C:
		}

		outcome, resultURL, providerMsg := c.pollOnce(ctx, job.JobID, attempt)
		switch outcome {
		case outcomeReady:
			job.State = domain.JobSucceeded
			job.ResultURL = resultURL
			return resultURL, nil
		case outcomeFailed:
			job.State = domain.JobFailed
			job.ErrorDetail = providerMsg
			return "", domain.NewError(domain.KindUpstreamFatal, "image generation failed", map[string]any{
				"provider_message": providerMsg,
				"task_id":          job.JobID,
			})
		case outcomeProcessing:
			job.State = domain.JobProcessing
		case outcomeTransportError, outcomeMissingResult:
			// Keep polling; the condition was already logged by pollOnce.
		}

		timer.Reset(c.pollInterval)
	}

	job.State = domain.JobTimedOut
	return "", domain.NewError(domain.KindTimeout, "image generation timed out", map[string]any{
		"task_id":  job.JobID,
		"attempts": c.maxPollAttempts,
	})
}

// pollOnce issues a single status request and classifies the response.
func (c *Client) pollOnce(ctx context.Context, taskID string, attempt int) (pollOutcome, string, string) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("taskId", taskID).
		Get("/record-info")
	if err != nil {
		c.warn(taskID, attempt, "transport error", err.Error())
		return outcomeTransportError, "", ""
	}
	if !resp.IsSuccess() {
		c.warn(taskID, attempt, "status check failed", resp.Status())
		return outcomeTransportError, "", ""
	}

	var decoded statusResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		c.warn(taskID, attempt, "unreadable status body", err.Error())
		return outcomeTransportError, "", ""
	}
	if decoded.Code != 200 {
		// The provider answered but could not report status; same treatment
		// as a transport hiccup.
		c.warn(taskID, attempt, "provider status code", "")
		return outcomeTransportError, "", ""
	}

	flag := decoded.Data.SuccessFlag
	switch {
	case flag == nil, *flag == 0:
		return outcomeProcessing, "", ""
	case *flag == 1:
		url := strings.TrimSpace(decoded.Data.Response.ResultImageURL)
		if url == "" {
			// A success flag without a result URL is a transient provider
			// inconsistency, not a failure.
			c.warn(taskID, attempt, "success flag without result url", "")
			return outcomeMissingResult, "", ""
		}
		return outcomeReady, url, ""
	default:
		msg := strings.TrimSpace(decoded.Data.ErrorMessage)
		if msg == "" {
			msg = "unknown error"
		}
		return outcomeFailed, "", msg
	}
}

// FetchResult downloads the finished image. One attempt; non-2xx is fatal.
// The request is unauthenticated: the API key belongs to the task endpoints,
// not to whichever host serves the result.
func (c *Client) FetchResult(ctx context.Context, resultURL string) ([]byte, error) {
	resp, err := c.download.R().
		SetContext(ctx).
		Get(resultURL)
	if err != nil {
		return nil, domain.WrapError(domain.KindUpstreamFatal, "failed to download generated image", err, nil)
	}
	if !resp.IsSuccess() {
		return nil, domain.NewError(domain.KindUpstreamFatal, "failed to download generated image", map[string]any{
			"status_code": resp.StatusCode(),
		})
	}
	return resp.Body(), nil
}

func (c *Client) warn(taskID string, attempt int, reason, detail string) {
	if c.logger == nil {
		return
	}
	c.logger.Warn().
		Str("task_id", taskID).
		Int("attempt", attempt).
		Str("detail", detail).
		Msgf("nanobanana: %s, continuing to poll", reason)
}
