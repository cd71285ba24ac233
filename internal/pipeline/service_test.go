package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"outfitgen/internal/domain"
	"outfitgen/internal/imaging"
)

type fakeDescriber struct {
	calls       int
	description *domain.OutfitDescription
	err         error
}

func (f *fakeDescriber) GenerateDescription(ctx context.Context, req domain.GenerationRequest) (*domain.OutfitDescription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.description, nil
}

type fakeUploader struct {
	calls         int
	url           string
	err           error
	lastPath      string
	sawStagedFile bool
}

func (f *fakeUploader) Upload(ctx context.Context, path string) (string, error) {
	f.calls++
	f.lastPath = path
	if _, err := os.Stat(path); err == nil {
		f.sawStagedFile = true
	}
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeSynthesizer struct {
	submitCalls int
	pollCalls   int
	fetchCalls  int
	submitErr   error
	pollErr     error
	result      []byte
	lastPrompt  string
	lastURL     string
}

func (f *fakeSynthesizer) Submit(ctx context.Context, prompt, imageURL string) (*domain.SynthesisJob, error) {
	f.submitCalls++
	f.lastPrompt = prompt
	f.lastURL = imageURL
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &domain.SynthesisJob{JobID: "task-1", State: domain.JobSubmitted}, nil
}

func (f *fakeSynthesizer) PollUntilComplete(ctx context.Context, job *domain.SynthesisJob) (string, error) {
	f.pollCalls++
	if f.pollErr != nil {
		job.State = domain.JobFailed
		return "", f.pollErr
	}
	job.State = domain.JobSucceeded
	return "https://files.example.com/out.png", nil
}

func (f *fakeSynthesizer) FetchResult(ctx context.Context, resultURL string) ([]byte, error) {
	f.fetchCalls++
	return f.result, nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURL(t *testing.T, width, height int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, width, height))
}

func sampleDescription() *domain.OutfitDescription {
	return &domain.OutfitDescription{
		Summary: "A relaxed look.",
		Items: []domain.OutfitItem{
			{Category: "top", Description: "linen shirt", Color: "white"},
			{Category: "bottom", Description: "chino trousers", Color: "navy"},
		},
		ColorPalette: domain.ColorPalette{Primary: "navy"},
	}
}

func newTestService(describer *fakeDescriber, uploader *fakeUploader, synth *fakeSynthesizer) *Service {
	return NewService(imaging.NewCodec(imaging.DefaultMaxImageBytes), describer, uploader, synth, 1024, nil)
}

func validRequest(t *testing.T) domain.GenerationRequest {
	return domain.GenerationRequest{
		SourceImage:    pngDataURL(t, 10, 10),
		Occasion:       "Casual",
		StyleIntensity: 5,
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{result: encodePNG(t, 2048, 1536)}
	svc := newTestService(describer, uploader, synth)

	result, err := svc.Generate(context.Background(), validRequest(t))
	require.NoError(t, err)
	require.NotEmpty(t, result.Description.Items)

	codec := imaging.NewCodec(imaging.DefaultMaxImageBytes)
	w, h, err := codec.Dimensions(result.GeneratedImage)
	require.NoError(t, err)
	require.LessOrEqual(t, w, 1024)
	require.LessOrEqual(t, h, 1024)

	require.Equal(t, 1, describer.calls)
	require.Equal(t, 1, uploader.calls)
	require.Equal(t, 1, synth.submitCalls)
	require.Equal(t, 1, synth.pollCalls)
	require.Equal(t, 1, synth.fetchCalls)

	require.True(t, uploader.sawStagedFile, "staged file must exist during the upload")
	_, statErr := os.Stat(uploader.lastPath)
	require.True(t, os.IsNotExist(statErr), "staged file must be removed after the upload")

	require.Equal(t, uploader.url, synth.lastURL)
	require.Contains(t, synth.lastPrompt, "linen shirt in white")
	require.Contains(t, synth.lastPrompt, "chino trousers in navy")
	require.Contains(t, synth.lastPrompt, "Occasion: Casual.")
}

func TestGenerateAcceptsRemoteSourceImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(encodePNG(t, 10, 10))
	}))
	defer srv.Close()

	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{result: encodePNG(t, 8, 8)}
	svc := newTestService(describer, uploader, synth)

	req := validRequest(t)
	req.SourceImage = srv.URL + "/me.jpg"
	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.GeneratedImage)

	// The remote photo still goes through the staging and upload steps so
	// the synthesis engine gets the CDN-resolved URL.
	require.Equal(t, 1, uploader.calls)
	require.True(t, uploader.sawStagedFile)
	require.Equal(t, uploader.url, synth.lastURL)
}

func TestGenerateLogsStagesUnderRequestID(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{result: encodePNG(t, 8, 8)}
	svc := newTestService(describer, uploader, synth)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel).With().Str("request_id", "req-123").Logger()
	ctx := logger.WithContext(context.Background())

	_, err := svc.Generate(ctx, validRequest(t))
	require.NoError(t, err)

	logs := buf.String()
	require.Contains(t, logs, `"request_id":"req-123"`)
	for _, stage := range []string{StageDescribe, StageUpload, StageSynthesize, StageOptimize} {
		require.Contains(t, logs, `"stage":"`+stage+`"`)
	}
}

func TestGenerateRejectsLocalPathsBeforeAnyProviderCall(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{result: encodePNG(t, 8, 8)}
	svc := newTestService(describer, uploader, synth)

	req := validRequest(t)
	req.SourceImage = "file:///etc/passwd"
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindValidation))

	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageValidate, perr.Stage)

	require.Zero(t, describer.calls)
	require.Zero(t, uploader.calls)
	require.Zero(t, synth.submitCalls)
	require.Zero(t, synth.pollCalls)
	require.Zero(t, synth.fetchCalls)
}

func TestGenerateDescribeFailureSkipsSynthesis(t *testing.T) {
	describer := &fakeDescriber{err: domain.NewError(domain.KindUpstreamTransient, "rate limited", nil)}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{}
	svc := newTestService(describer, uploader, synth)

	_, err := svc.Generate(context.Background(), validRequest(t))
	require.True(t, domain.IsKind(err, domain.KindUpstreamTransient), "kind must pass through unchanged")

	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageDescribe, perr.Stage)

	require.Zero(t, uploader.calls)
	require.Zero(t, synth.submitCalls)
}

func TestGenerateUploadFailureReleasesStagedFile(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{err: domain.NewError(domain.KindUpstreamFatal, "CDN upload rejected", nil)}
	synth := &fakeSynthesizer{}
	svc := newTestService(describer, uploader, synth)

	_, err := svc.Generate(context.Background(), validRequest(t))
	require.True(t, domain.IsKind(err, domain.KindUpstreamFatal))

	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageUpload, perr.Stage)

	_, statErr := os.Stat(uploader.lastPath)
	require.True(t, os.IsNotExist(statErr), "staged file must be removed on the error path")
	require.Zero(t, synth.submitCalls)
}

func TestGenerateSynthesisFailurePreservesProviderDetail(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{
		pollErr: domain.NewError(domain.KindUpstreamFatal, "image generation failed", map[string]any{
			"provider_message": "content policy violation",
		}),
	}
	svc := newTestService(describer, uploader, synth)

	_, err := svc.Generate(context.Background(), validRequest(t))
	require.True(t, domain.IsKind(err, domain.KindUpstreamFatal))

	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageSynthesize, perr.Stage)
	require.Equal(t, "content policy violation", perr.Details["provider_message"])
	require.Zero(t, synth.fetchCalls)
}

func TestGenerateTimeoutKindPassesThrough(t *testing.T) {
	describer := &fakeDescriber{description: sampleDescription()}
	uploader := &fakeUploader{url: "https://cdn.example.com/me.png"}
	synth := &fakeSynthesizer{
		pollErr: domain.NewError(domain.KindTimeout, "image generation timed out", map[string]any{"attempts": 60}),
	}
	svc := newTestService(describer, uploader, synth)

	_, err := svc.Generate(context.Background(), validRequest(t))
	require.True(t, domain.IsKind(err, domain.KindTimeout), "timeout must stay distinct from upstream_fatal")
}

func TestBackgroundFor(t *testing.T) {
	require.Equal(t, "upscale restaurant interior with romantic lighting", BackgroundFor("Date Night"))
	require.Equal(t, defaultBackground, BackgroundFor("Space Walk"))
	require.Equal(t, defaultBackground, BackgroundFor(""))
}

func TestOutfitDetails(t *testing.T) {
	require.Equal(t, "linen shirt in white chino trousers in navy", OutfitDetails(sampleDescription()))
	require.Equal(t, "", OutfitDetails(nil))
	require.Equal(t, "", OutfitDetails(&domain.OutfitDescription{}))
}

func TestBuildSynthesisPrompt(t *testing.T) {
	prompt := BuildSynthesisPrompt("a silk dress in red", "Date Night", BackgroundFor("Date Night"))
	for _, fragment := range []string{
		"Transform this person wearing a silk dress in red.",
		"Setting: upscale restaurant interior with romantic lighting.",
		"Occasion: Date Night.",
		"Keep the same person's face",
	} {
		require.Contains(t, prompt, fragment)
	}
	require.False(t, strings.Contains(prompt, "%s"))
}
