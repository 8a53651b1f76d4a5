package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"snapcaption/internal/domain"
	"snapcaption/internal/normalize"
)

// Captioner produces a caption for a normalized image. Implementations never
// fail: they degrade to fallback text instead.
type Captioner interface {
	Generate(ctx context.Context, img *normalize.Image, opts domain.CaptionOptions) domain.CaptionResult
}

// Styler optionally restyles a square JPEG. A nil result means no usable
// output and the caller keeps the plain crop.
type Styler interface {
	Enabled() bool
	Stylize(ctx context.Context, jpegData []byte, style string) []byte
}

// Pipeline runs one request through normalize → optional style transfer →
// caption generation. The only error it can surface is an image decode
// failure; caption generation always yields a usable result.
type Pipeline struct {
	normalizer *normalize.Normalizer
	captioner  Captioner
	styler     Styler
	logger     zerolog.Logger
}

// New wires the pipeline stages. styler may be nil when style transfer is not
// configured.
func New(normalizer *normalize.Normalizer, captioner Captioner, styler Styler, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		captioner:  captioner,
		styler:     styler,
		logger:     logger,
	}
}

// Process handles a single request: raw upload bytes in, ProcessingResult out.
func (p *Pipeline) Process(ctx context.Context, raw []byte, opts domain.CaptionOptions, imageStyle string) (domain.ProcessingResult, error) {
	img, err := p.normalizer.Normalize(raw)
	if err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("normalize image: %w", err)
	}

	if style := strings.ToLower(strings.TrimSpace(imageStyle)); style != "" && style != "none" {
		img = p.applyStyle(ctx, img, style)
	}

	caption := p.captioner.Generate(ctx, img, opts)
	return domain.ProcessingResult{
		Success:        true,
		ProcessedImage: img.DataURI,
		GeneratedText:  caption.GeneratedText,
		Hashtags:       caption.Hashtags,
	}, nil
}

// applyStyle runs the style-transfer stage and re-normalizes its output so
// the final image is still the fixed square resolution. Any failure keeps the
// plain crop.
func (p *Pipeline) applyStyle(ctx context.Context, img *normalize.Image, style string) *normalize.Image {
	if p.styler == nil || !p.styler.Enabled() {
		p.logger.Debug().Str("style", style).Msg("pipeline: style stage not configured, keeping plain crop")
		return img
	}
	styled := p.styler.Stylize(ctx, img.Bytes, style)
	if styled == nil {
		p.logger.Warn().Str("style", style).Msg("pipeline: style stage produced no result, keeping plain crop")
		return img
	}
	restyled, err := p.normalizer.Normalize(styled)
	if err != nil {
		p.logger.Warn().Err(err).Str("style", style).Msg("pipeline: styled image not decodable, keeping plain crop")
		return img
	}
	return restyled
}
