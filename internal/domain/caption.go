package domain

import "strings"

// TextStyle selects the overall tone of the generated post body.
type TextStyle string

const (
	TextStyleSerious    TextStyle = "serious"
	TextStyleHumor      TextStyle = "humor"
	TextStyleSparkle    TextStyle = "sparkle"
	TextStylePassionate TextStyle = "passionate"
	TextStyleCasual     TextStyle = "casual"
	TextStyleElegant    TextStyle = "elegant"
)

// CharacterStyle selects the persona of the generated text.
type CharacterStyle string

const (
	CharacterMasculine CharacterStyle = "masculine"
	CharacterFeminine  CharacterStyle = "feminine"
	CharacterNeutral   CharacterStyle = "neutral"
)

// Language selects the language of both the post body and the hashtags.
type Language string

const (
	LanguageJapanese  Language = "japanese"
	LanguageEnglish   Language = "english"
	LanguageBilingual Language = "bilingual"
)

// HashtagAmount is the coarse tier accepted by older clients. It resolves to
// a concrete count; new clients send an explicit count instead.
type HashtagAmount string

const (
	HashtagFew    HashtagAmount = "few"
	HashtagNormal HashtagAmount = "normal"
	HashtagMany   HashtagAmount = "many"
)

const (
	DefaultHashtagCount = 10

	hashtagCountFew  = 5
	hashtagCountMany = 15
)

// CaptionOptions is the fully resolved option set for one caption request.
// Zero values are valid: every field falls back to its documented default.
type CaptionOptions struct {
	TextStyle       TextStyle
	CharacterStyle  CharacterStyle
	Language        Language
	HashtagCount    int
	RequiredKeyword string
}

// ParseTextStyle maps a raw request value to a TextStyle. Unknown or empty
// values resolve to the serious default, never an error.
func ParseTextStyle(raw string) TextStyle {
	switch TextStyle(strings.ToLower(strings.TrimSpace(raw))) {
	case TextStyleHumor:
		return TextStyleHumor
	case TextStyleSparkle:
		return TextStyleSparkle
	case TextStylePassionate:
		return TextStylePassionate
	case TextStyleCasual:
		return TextStyleCasual
	case TextStyleElegant:
		return TextStyleElegant
	default:
		return TextStyleSerious
	}
}

// ParseCharacterStyle maps a raw request value to a CharacterStyle.
func ParseCharacterStyle(raw string) CharacterStyle {
	switch CharacterStyle(strings.ToLower(strings.TrimSpace(raw))) {
	case CharacterMasculine:
		return CharacterMasculine
	case CharacterFeminine:
		return CharacterFeminine
	default:
		return CharacterNeutral
	}
}

// ParseLanguage maps a raw request value to a Language.
func ParseLanguage(raw string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageEnglish:
		return LanguageEnglish
	case LanguageBilingual:
		return LanguageBilingual
	default:
		return LanguageJapanese
	}
}

// ResolveHashtagCount picks the canonical hashtag count from the two request
// schemas still in the wild: an explicit positive count wins, otherwise the
// tier resolves through the few/normal/many table, otherwise the default.
func ResolveHashtagCount(count int, amount string) int {
	if count > 0 {
		return count
	}
	switch HashtagAmount(strings.ToLower(strings.TrimSpace(amount))) {
	case HashtagFew:
		return hashtagCountFew
	case HashtagMany:
		return hashtagCountMany
	case HashtagNormal:
		return DefaultHashtagCount
	default:
		return DefaultHashtagCount
	}
}

// CaptionResult is the generated caption pair. Both fields are always
// non-empty; generation failures substitute the fixed fallback text.
type CaptionResult struct {
	GeneratedText string
	Hashtags      string
}

// ProcessingResult is the aggregate the boundary layer serializes back to the
// caller.
type ProcessingResult struct {
	Success        bool
	ProcessedImage string
	GeneratedText  string
	Hashtags       string
}
