package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"snapcaption/internal/captiongen"
	"snapcaption/internal/domain"
	"snapcaption/internal/normalize"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash-lite"
	defaultTimeout = 60 * time.Second

	maxOutputTokens = 500
	temperature     = 0.7

	maxAttempts = 3
	backoffBase = 2 * time.Second
)

// Fixed caption pair returned whenever generation is unavailable or fails.
const (
	FallbackText     = "素敵な写真が撮れました！✨"
	FallbackHashtags = "#instagram #photo #instagood"
)

// Options controls how the Captioner is configured.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// Sleep is the backoff delay function; tests substitute a recorder.
	Sleep func(time.Duration)
}

// Captioner calls the Gemini generateContent endpoint with a prompt and an
// inline image, and degrades to fixed fallback text instead of surfacing
// errors. An empty API key is a documented degraded mode, not a failure.
type Captioner struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	sleep   func(time.Duration)
}

// NewCaptioner constructs a Captioner with sane defaults.
func NewCaptioner(opts Options) *Captioner {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Captioner{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  opts.Logger,
		sleep:   sleep,
	}
}

// Model returns the configured Gemini model identifier.
func (c *Captioner) Model() string {
	return c.model
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate produces a caption for the normalized image. It never returns an
// error: missing credentials, exhausted retries and unparseable responses all
// degrade to the fixed fallback pair.
func (c *Captioner) Generate(ctx context.Context, img *normalize.Image, opts domain.CaptionOptions) domain.CaptionResult {
	if c.apiKey == "" {
		c.logger.Debug().Msg("gemini: no api key configured, returning fallback caption")
		return domain.CaptionResult{GeneratedText: FallbackText, Hashtags: FallbackHashtags}
	}

	prompt := captiongen.BuildPrompt(opts)
	fullText, err := c.generateWithRetry(ctx, prompt, img)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("gemini: caption generation failed, returning fallback")
		return domain.CaptionResult{GeneratedText: FallbackText, Hashtags: FallbackHashtags}
	}

	body, hashtags := splitSections(fullText)
	hashtags = injectKeyword(hashtags, opts.RequiredKeyword)
	return domain.CaptionResult{GeneratedText: body, Hashtags: hashtags}
}

func (c *Captioner) generateWithRetry(ctx context.Context, prompt string, img *normalize.Image) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.call(ctx, prompt, img)
		if err == nil {
			return text, nil
		}
		lastErr = err
		class := classify(err)
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Str("class", class.String()).
			Msg("gemini: generateContent call failed")
		if class != classTransient || attempt == maxAttempts {
			return "", err
		}
		delay := backoffBase * time.Duration(attempt)
		c.logger.Debug().Dur("delay", delay).Msg("gemini: backing off before retry")
		c.sleep(delay)
	}
	return "", lastErr
}

func (c *Captioner) call(ctx context.Context, prompt string, img *normalize.Image) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{MimeType: img.MIME, Data: img.Base64}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     temperature,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	text := extractText(out)
	if text == "" {
		return "", fmt.Errorf("empty candidate text")
	}
	return text, nil
}

func extractText(resp geminiResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

// splitSections extracts the body and hashtag sections between the prompt's
// markers. The two fields fall back independently: a caption with only one
// usable section still returns that section.
func splitSections(fullText string) (body, hashtags string) {
	body = FallbackText
	hashtags = FallbackHashtags

	bodyIdx := strings.Index(fullText, captiongen.BodyMarker)
	tagIdx := strings.Index(fullText, captiongen.HashtagMarker)

	if bodyIdx >= 0 && tagIdx > bodyIdx {
		if extracted := strings.TrimSpace(fullText[bodyIdx+len(captiongen.BodyMarker) : tagIdx]); extracted != "" {
			body = extracted
		}
	}
	if tagIdx >= 0 {
		if extracted := strings.TrimSpace(fullText[tagIdx+len(captiongen.HashtagMarker):]); extracted != "" {
			hashtags = extracted
		}
	}
	return body, hashtags
}

// injectKeyword prepends the hashtag form of the required keyword when the
// model response did not already include it.
func injectKeyword(hashtags, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return hashtags
	}
	tag := hashtagToken(keyword)
	if strings.Contains(hashtags, tag) {
		return hashtags
	}
	return tag + " " + hashtags
}

// hashtagToken turns free keyword text into a single hashtag. Multi-word
// keywords are title-cased and joined so the tag stays one token.
func hashtagToken(keyword string) string {
	fields := strings.Fields(keyword)
	if len(fields) == 1 {
		return "#" + fields[0]
	}
	caser := cases.Title(language.Und)
	var sb strings.Builder
	sb.WriteByte('#')
	for _, field := range fields {
		sb.WriteString(caser.String(field))
	}
	return sb.String()
}
