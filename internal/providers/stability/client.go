package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.stability.ai/v1"
	defaultEngine  = "stable-diffusion-xl-1024-v1-0"
	defaultTimeout = 120 * time.Second

	imageStrength = "0.35"
	steps         = "30"
	cfgScale      = "7"
)

var stylePrompts = map[string]string{
	"anime":   "anime style, illustration, 2d animation, japanese anime, cartoon",
	"vintage": "vintage photo, retro, film grain, nostalgic, old photograph, sepia",
	"sparkle": "sparkly, glittery, magical, shimmering effects, glamorous, dreamy",
}

const fallbackStylePrompt = "enhance the image"

// Options controls how the Styler is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Engine     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Styler restyles a square JPEG through the Stability image-to-image
// endpoint. Every failure path returns (nil, nil) alongside a log entry: the
// pipeline treats a missing result as "keep the plain crop", never as a
// request failure.
type Styler struct {
	apiKey  string
	baseURL string
	engine  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewStyler constructs a Styler with sane defaults.
func NewStyler(opts Options) *Styler {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	engine := strings.TrimSpace(opts.Engine)
	if engine == "" {
		engine = defaultEngine
	}
	return &Styler{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		engine:  engine,
		client:  client,
		logger:  opts.Logger,
	}
}

// Enabled reports whether a credential is configured.
func (s *Styler) Enabled() bool {
	return s.apiKey != ""
}

type artifactsResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
		B64    string `json:"b64"`
	} `json:"artifacts"`
	ImageBase64 string `json:"image_base64"`
	Image       string `json:"image"`
}

// Stylize sends the JPEG through image-to-image generation with the prompt
// for the requested style. A nil result means no usable output.
func (s *Styler) Stylize(ctx context.Context, jpegData []byte, style string) []byte {
	if !s.Enabled() {
		s.logger.Warn().Msg("stability: no api key configured, skipping style stage")
		return nil
	}

	prompt, ok := stylePrompts[strings.ToLower(strings.TrimSpace(style))]
	if !ok {
		prompt = fallbackStylePrompt
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("init_image", "image.jpg")
	if err == nil {
		_, err = part.Write(jpegData)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("stability: building multipart form failed")
		return nil
	}
	fields := map[string]string{
		"text_prompts[0][text]":   prompt,
		"text_prompts[0][weight]": "1",
		"init_image_mode":         "IMAGE_STRENGTH",
		"image_strength":          imageStrength,
		"samples":                 "1",
		"steps":                   steps,
		"cfg_scale":               cfgScale,
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			s.logger.Error().Err(err).Msg("stability: building multipart form failed")
			return nil
		}
	}
	if err := form.Close(); err != nil {
		s.logger.Error().Err(err).Msg("stability: building multipart form failed")
		return nil
	}

	endpoint := fmt.Sprintf("%s/generation/%s/image-to-image", s.baseURL, s.engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		s.logger.Error().Err(err).Msg("stability: building request failed")
		return nil
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("stability: request failed")
		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(raw))).
			Msg("stability: upstream error")
		return nil
	}

	var out artifactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		s.logger.Error().Err(err).Msg("stability: decoding response failed")
		return nil
	}
	encoded := out.firstImage()
	if encoded == "" {
		s.logger.Error().Msg("stability: response contained no image")
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Error().Err(err).Msg("stability: response image was not valid base64")
		return nil
	}
	return decoded
}

func (r artifactsResponse) firstImage() string {
	if len(r.Artifacts) > 0 {
		if r.Artifacts[0].Base64 != "" {
			return r.Artifacts[0].Base64
		}
		if r.Artifacts[0].B64 != "" {
			return r.Artifacts[0].B64
		}
	}
	if r.ImageBase64 != "" {
		return r.ImageBase64
	}
	return r.Image
}
