package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"snapcaption/internal/domain"
	"snapcaption/internal/middleware"
)

// User-facing messages match the original Japanese front end.
const (
	msgMissingImage    = "画像ファイルがアップロードされていません。"
	msgUnsupportedType = "許可されていないファイル形式です。JPG、PNG、GIFのみアップロード可能です。"
	msgTooLarge        = "ファイルサイズが大きすぎます。10MB以下の画像をアップロードしてください。"
	msgServerError     = "サーバーエラーが発生しました。"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

type processResponse struct {
	Success        bool   `json:"success"`
	ProcessedImage string `json:"processedImage"`
	GeneratedText  string `json:"generatedText"`
	Hashtags       string `json:"hashtags"`
}

// rawOptions is the option bag both transports decode into before resolution.
type rawOptions struct {
	TextStyle       string
	HashtagCount    int
	HashtagAmount   string
	Language        string
	CharacterStyle  string
	RequiredKeyword string
	ImageStyle      string
}

type processJSONRequest struct {
	ImageBase64     string `json:"imageBase64"`
	TextStyle       string `json:"textStyle"`
	HashtagCount    int    `json:"hashtagCount"`
	HashtagAmount   string `json:"hashtagAmount"`
	Language        string `json:"language"`
	CharacterStyle  string `json:"characterStyle"`
	RequiredKeyword string `json:"requiredKeyword"`
	ImageStyle      string `json:"imageStyle"`
}

// Process accepts either a multipart upload (file field "image") or a JSON
// body with an "imageBase64" field, then runs the caption pipeline.
func (a *App) Process(w http.ResponseWriter, r *http.Request) {
	var (
		imageData []byte
		opts      rawOptions
		err       error
	)

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		imageData, opts, err = a.decodeMultipart(w, r)
	case strings.HasPrefix(contentType, "application/json"):
		imageData, opts, err = a.decodeJSON(w, r)
	default:
		a.error(w, http.StatusUnsupportedMediaType, msgUnsupportedType, "")
		return
	}
	if err != nil {
		a.writeInputError(w, err)
		return
	}

	result, err := a.Pipeline.Process(r.Context(), imageData, a.captionOptions(r.Context(), opts), opts.ImageStyle)
	if err != nil {
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("process: pipeline failed")
		a.error(w, http.StatusInternalServerError, msgServerError, err.Error())
		return
	}

	a.json(w, http.StatusOK, processResponse{
		Success:        result.Success,
		ProcessedImage: result.ProcessedImage,
		GeneratedText:  result.GeneratedText,
		Hashtags:       result.Hashtags,
	})
}

func (a *App) decodeMultipart(w http.ResponseWriter, r *http.Request) ([]byte, rawOptions, error) {
	// Form framing adds overhead beyond the image payload itself.
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(a.MaxUploadBytes + 1<<20); err != nil {
		if isBodyTooLarge(err) {
			return nil, rawOptions{}, domain.ErrPayloadTooLarge
		}
		return nil, rawOptions{}, domain.ErrMissingImage
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, rawOptions{}, domain.ErrMissingImage
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, a.MaxUploadBytes+1))
	if err != nil {
		return nil, rawOptions{}, domain.ErrMissingImage
	}
	if int64(len(data)) > a.MaxUploadBytes {
		return nil, rawOptions{}, domain.ErrPayloadTooLarge
	}

	declared := header.Header.Get("Content-Type")
	if declared == "" {
		declared = http.DetectContentType(data)
	}
	if _, ok := allowedImageTypes[strings.ToLower(declared)]; !ok {
		return nil, rawOptions{}, domain.ErrUnsupportedFormat
	}

	count, _ := strconv.Atoi(r.FormValue("hashtagCount"))
	opts := rawOptions{
		TextStyle:       r.FormValue("textStyle"),
		HashtagCount:    count,
		HashtagAmount:   r.FormValue("hashtagAmount"),
		Language:        r.FormValue("language"),
		CharacterStyle:  r.FormValue("characterStyle"),
		RequiredKeyword: r.FormValue("requiredKeyword"),
		ImageStyle:      r.FormValue("imageStyle"),
	}
	return data, opts, nil
}

func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request) ([]byte, rawOptions, error) {
	// Base64 inflates the payload by roughly a third.
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes*4/3+1<<20)

	var req processJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			return nil, rawOptions{}, domain.ErrPayloadTooLarge
		}
		return nil, rawOptions{}, domain.ErrMissingImage
	}

	payload := strings.TrimSpace(req.ImageBase64)
	if payload == "" {
		return nil, rawOptions{}, domain.ErrMissingImage
	}
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, rawOptions{}, domain.ErrMissingImage
	}
	if int64(len(data)) > a.MaxUploadBytes {
		return nil, rawOptions{}, domain.ErrPayloadTooLarge
	}
	if _, ok := allowedImageTypes[http.DetectContentType(data)]; !ok {
		return nil, rawOptions{}, domain.ErrUnsupportedFormat
	}

	opts := rawOptions{
		TextStyle:       req.TextStyle,
		HashtagCount:    req.HashtagCount,
		HashtagAmount:   req.HashtagAmount,
		Language:        req.Language,
		CharacterStyle:  req.CharacterStyle,
		RequiredKeyword: req.RequiredKeyword,
		ImageStyle:      req.ImageStyle,
	}
	return data, opts, nil
}

// captionOptions resolves the raw option bag. An omitted language falls back
// to the locale detected by the i18n middleware before the documented
// Japanese default applies.
func (a *App) captionOptions(ctx context.Context, raw rawOptions) domain.CaptionOptions {
	lang := strings.TrimSpace(raw.Language)
	if lang == "" && middleware.LocaleFromContext(ctx) == "en" {
		lang = string(domain.LanguageEnglish)
	}
	return domain.CaptionOptions{
		TextStyle:       domain.ParseTextStyle(raw.TextStyle),
		CharacterStyle:  domain.ParseCharacterStyle(raw.CharacterStyle),
		Language:        domain.ParseLanguage(lang),
		HashtagCount:    domain.ResolveHashtagCount(raw.HashtagCount, raw.HashtagAmount),
		RequiredKeyword: strings.TrimSpace(raw.RequiredKeyword),
	}
}

func (a *App) writeInputError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPayloadTooLarge):
		a.error(w, http.StatusBadRequest, msgTooLarge, "")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		a.error(w, http.StatusBadRequest, msgUnsupportedType, "")
	default:
		a.error(w, http.StatusBadRequest, msgMissingImage, "")
	}
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
