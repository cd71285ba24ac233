// Package imaging adapts user-supplied images between transport encodings:
// base64 data URLs, raw bytes and normalized JPEG output. It also enforces
// the inbound size and format policy for the generation pipeline.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	disintegration "github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"

	"outfitgen/internal/domain"
)

const (
	// DefaultMaxImageBytes caps the estimated decoded payload size.
	DefaultMaxImageBytes = 10 * 1024 * 1024
	// DefaultMaxDimension is the longest output edge after Optimize.
	DefaultMaxDimension = 1024

	jpegQuality = 85
)

// base64 expands payloads by roughly a third, so the decoded size is about
// three quarters of the encoded length.
const base64DecodedRatio = 0.75

var traversalMarkers = []string{"file://", `file:\`, "../", `..\`}

// Codec validates and transcodes pipeline images. The zero value is not
// usable; construct via NewCodec.
type Codec struct {
	maxSizeBytes int64
	fetch        *resty.Client
}

// NewCodec builds a codec enforcing the given decoded-size ceiling. A
// non-positive value falls back to DefaultMaxImageBytes.
func NewCodec(maxSizeBytes int64) *Codec {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxImageBytes
	}
	return &Codec{
		maxSizeBytes: maxSizeBytes,
		fetch:        resty.New().SetTimeout(30 * time.Second),
	}
}

// Validate checks that the image reference is an inline data URL or an
// absolute http(s) URL, carries no filesystem traversal markers, and stays
// under the configured size ceiling.
func (c *Codec) Validate(imageRef string) error {
	trimmed := strings.TrimSpace(imageRef)
	if trimmed == "" {
		return domain.NewError(domain.KindValidation, "no image data provided", nil)
	}
	lowered := strings.ToLower(trimmed)
	for _, marker := range traversalMarkers {
		if strings.Contains(lowered, marker) {
			return domain.NewError(domain.KindValidation, "image reference contains a forbidden path marker", nil)
		}
	}
	isDataURL := strings.HasPrefix(lowered, "data:image")
	isRemote := isRemoteRef(trimmed)
	if !isDataURL && !isRemote {
		return domain.NewError(domain.KindValidation, "image must be a data URL or an absolute http(s) URL", map[string]any{
			"expected": "data:image/...;base64,... or https://...",
		})
	}
	if isDataURL {
		if estimated := int64(float64(len(trimmed)) * base64DecodedRatio); estimated > c.maxSizeBytes {
			return domain.NewError(domain.KindValidation, "image size exceeds maximum allowed", map[string]any{
				"max_size":       c.maxSizeBytes,
				"estimated_size": estimated,
			})
		}
	}
	return nil
}

// Materialize resolves an image reference to a temporary file suitable for a
// multipart upload: inline data URLs are base64-decoded, http(s) references
// are downloaded. The returned cleanup removes the file and must be called on
// every exit path.
func (c *Codec) Materialize(imageRef string) (string, func(), error) {
	trimmed := strings.TrimSpace(imageRef)
	var raw []byte
	var err error
	if isRemoteRef(trimmed) {
		raw, err = c.fetchRemote(trimmed)
	} else {
		raw, err = decodeBase64Payload(trimmed)
	}
	if err != nil {
		return "", nil, err
	}
	tmp, err := os.CreateTemp("", "outfitgen-upload-*.png")
	if err != nil {
		return "", nil, domain.WrapError(domain.KindImageProcessing, "failed to stage image for upload", err, nil)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, domain.WrapError(domain.KindImageProcessing, "failed to stage image for upload", err, nil)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, domain.WrapError(domain.KindImageProcessing, "failed to stage image for upload", err, nil)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

// Optimize normalizes raw image bytes for delivery: alpha and palette inputs
// are flattened onto white, either dimension above maxDim triggers a Lanczos
// downsample, and the result is re-encoded as JPEG at quality 85 inside a
// data URL. Output dimensions are deterministic for a given input and maxDim.
func (c *Codec) Optimize(raw []byte, maxDim int) (string, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	img, err := disintegration.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", domain.WrapError(domain.KindImageProcessing, "failed to decode generated image", err, nil)
	}
	flattened := flattenOnWhite(img)
	bounds := flattened.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		flattened = disintegration.Fit(flattened, maxDim, maxDim, disintegration.Lanczos)
	}
	var buf bytes.Buffer
	if err := disintegration.Encode(&buf, flattened, disintegration.JPEG, disintegration.JPEGQuality(jpegQuality)); err != nil {
		return "", domain.WrapError(domain.KindImageProcessing, "failed to encode optimized image", err, nil)
	}
	return EncodeDataURL(buf.Bytes(), "image/jpeg"), nil
}

// Dimensions reports the pixel size of an inline image without a full decode.
func (c *Codec) Dimensions(imageRef string) (int, int, error) {
	raw, err := decodeBase64Payload(imageRef)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, domain.WrapError(domain.KindImageProcessing, "failed to read image dimensions", err, nil)
	}
	return cfg.Width, cfg.Height, nil
}

// EncodeDataURL wraps raw bytes in a base64 data URL with the given MIME type.
func EncodeDataURL(raw []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw))
}

// fetchRemote downloads an http(s) image reference. The size ceiling applies
// to the downloaded bytes the same way it applies to inline payloads, since a
// remote reference carries no length to estimate from at validation time.
func (c *Codec) fetchRemote(url string) ([]byte, error) {
	resp, err := c.fetch.R().Get(url)
	if err != nil {
		return nil, domain.WrapError(domain.KindImageProcessing, "failed to download source image", err, nil)
	}
	if !resp.IsSuccess() {
		return nil, domain.NewError(domain.KindImageProcessing, "failed to download source image", map[string]any{
			"status_code": resp.StatusCode(),
		})
	}
	raw := resp.Body()
	if len(raw) == 0 {
		return nil, domain.NewError(domain.KindImageProcessing, "source image download was empty", nil)
	}
	if int64(len(raw)) > c.maxSizeBytes {
		return nil, domain.NewError(domain.KindValidation, "image size exceeds maximum allowed", map[string]any{
			"max_size":    c.maxSizeBytes,
			"actual_size": len(raw),
		})
	}
	return raw, nil
}

func isRemoteRef(ref string) bool {
	lowered := strings.ToLower(ref)
	return strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://")
}

// decodeBase64Payload strips an optional data URL prefix and decodes the rest.
func decodeBase64Payload(imageRef string) ([]byte, error) {
	payload := strings.TrimSpace(imageRef)
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(strings.ToLower(payload), "data:") {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.WrapError(domain.KindImageProcessing, "image payload is not valid base64", err, nil)
	}
	if len(raw) == 0 {
		return nil, domain.NewError(domain.KindImageProcessing, "image payload is empty", nil)
	}
	return raw, nil
}

// flattenOnWhite composites any image onto an opaque white canvas so alpha
// and palette formats survive JPEG encoding.
func flattenOnWhite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	canvas := disintegration.New(bounds.Dx(), bounds.Dy(), color.White)
	return disintegration.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
