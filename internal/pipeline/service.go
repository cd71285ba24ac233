// Package pipeline sequences the outfit-image generation stages: validate the
// photo, describe the outfit, stage and upload the photo, drive the
// asynchronous synthesis job, and optimize the finished image. Each stage
// owns its retry policy; the orchestrator only orders them, passes outputs
// forward and attributes failures to their stage.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"outfitgen/internal/domain"
	"outfitgen/internal/imaging"
	"outfitgen/internal/infra"
)

// Stage names used for error attribution and timing.
const (
	StageValidate   = "validate"
	StageDescribe   = "describe"
	StageUpload     = "upload"
	StageSynthesize = "synthesize"
	StageOptimize   = "optimize"
)

// Describer produces a structured outfit recommendation.
type Describer interface {
	GenerateDescription(ctx context.Context, req domain.GenerationRequest) (*domain.OutfitDescription, error)
}

// Uploader pushes a staged local file to a publicly reachable URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Synthesizer drives an asynchronous image-to-image job to completion.
type Synthesizer interface {
	Submit(ctx context.Context, prompt, imageURL string) (*domain.SynthesisJob, error)
	PollUntilComplete(ctx context.Context, job *domain.SynthesisJob) (string, error)
	FetchResult(ctx context.Context, resultURL string) ([]byte, error)
}

// Service is the pipeline orchestrator.
type Service struct {
	codec        *imaging.Codec
	describer    Describer
	uploader     Uploader
	synthesizer  Synthesizer
	maxDimension int
	logger       *infra.Logger
}

// NewService wires the pipeline stages together.
func NewService(codec *imaging.Codec, describer Describer, uploader Uploader, synthesizer Synthesizer, maxDimension int, logger *infra.Logger) *Service {
	if maxDimension <= 0 {
		maxDimension = imaging.DefaultMaxDimension
	}
	return &Service{
		codec:        codec,
		describer:    describer,
		uploader:     uploader,
		synthesizer:  synthesizer,
		maxDimension: maxDimension,
		logger:       logger,
	}
}

// Generate runs the full pipeline for one request. Validation and description
// must succeed before any upload or synthesis work starts, so an invalid
// request never consumes a provider job slot.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.PipelineResult, error) {
	if err := s.codec.Validate(req.SourceImage); err != nil {
		return nil, domain.WithStage(err, StageValidate)
	}

	var timings domain.StageTimings

	start := time.Now()
	description, err := s.describer.GenerateDescription(ctx, req)
	if err != nil {
		return nil, domain.WithStage(err, StageDescribe)
	}
	timings.Describe = time.Since(start)
	s.stageDone(ctx, StageDescribe, timings.Describe)

	prompt := BuildSynthesisPrompt(OutfitDetails(description), req.Occasion, BackgroundFor(req.Occasion))

	start = time.Now()
	stagedPath, cleanup, err := s.codec.Materialize(req.SourceImage)
	if err != nil {
		return nil, domain.WithStage(err, StageUpload)
	}
	// The staged file exists only for the upload step; the defer covers
	// every error exit below the explicit release.
	defer cleanup()
	sourceURL, err := s.uploader.Upload(ctx, stagedPath)
	cleanup()
	if err != nil {
		return nil, domain.WithStage(err, StageUpload)
	}
	timings.Upload = time.Since(start)
	s.stageDone(ctx, StageUpload, timings.Upload)

	start = time.Now()
	job, err := s.synthesizer.Submit(ctx, prompt, sourceURL)
	if err != nil {
		return nil, domain.WithStage(err, StageSynthesize)
	}
	resultURL, err := s.synthesizer.PollUntilComplete(ctx, job)
	if err != nil {
		return nil, domain.WithStage(err, StageSynthesize)
	}
	rawImage, err := s.synthesizer.FetchResult(ctx, resultURL)
	if err != nil {
		return nil, domain.WithStage(err, StageSynthesize)
	}
	timings.Synthesize = time.Since(start)
	s.stageDone(ctx, StageSynthesize, timings.Synthesize)

	start = time.Now()
	optimized, err := s.codec.Optimize(rawImage, s.maxDimension)
	if err != nil {
		return nil, domain.WithStage(err, StageOptimize)
	}
	timings.Optimize = time.Since(start)
	s.stageDone(ctx, StageOptimize, timings.Optimize)

	return &domain.PipelineResult{
		Description:    description,
		GeneratedImage: optimized,
		Timings:        timings,
	}, nil
}

// stageDone logs stage completion under the request-scoped logger when the
// HTTP layer put one in the context, falling back to the service logger.
func (s *Service) stageDone(ctx context.Context, stage string, elapsed time.Duration) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		if s.logger == nil {
			return
		}
		logger = s.logger
	}
	logger.Debug().Str("stage", stage).Dur("elapsed", elapsed).Msg("pipeline: stage complete")
}
