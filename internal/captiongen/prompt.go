package captiongen

import (
	"fmt"
	"strings"

	"snapcaption/internal/domain"
)

// Section markers the model is instructed to emit. The generator locates
// these in the response text to split body copy from the hashtag line.
const (
	BodyMarker    = "【投稿文】"
	HashtagMarker = "【ハッシュタグ】"
)

var textStyleClauses = map[domain.TextStyle]string{
	domain.TextStyleSerious:    "プロフェッショナルで信頼感のある文章",
	domain.TextStyleHumor:      "ユーモアがあって親しみやすい文章",
	domain.TextStyleSparkle:    "キラキラした感じの楽しい文章",
	domain.TextStylePassionate: "情熱的でエネルギッシュな文章",
	domain.TextStyleCasual:     "カジュアルで気軽な文章",
	domain.TextStyleElegant:    "エレガントで洗練された文章",
}

var characterClauses = map[domain.CharacterStyle]string{
	domain.CharacterMasculine: "男性的で力強い言葉遣い",
	domain.CharacterFeminine:  "女性的で優しい言葉遣い",
	domain.CharacterNeutral:   "中性的でニュートラルな言葉遣い",
}

var languageClauses = map[domain.Language]string{
	domain.LanguageJapanese:  "日本語で書いてください。",
	domain.LanguageEnglish:   "英語で書いてください。",
	domain.LanguageBilingual: "日本語と英語の併記で書いてください。日本語を先に、その後に英語訳を記載してください。",
}

var hashtagLanguageClauses = map[domain.Language]string{
	domain.LanguageJapanese:  "日本語のハッシュタグ",
	domain.LanguageEnglish:   "英語のハッシュタグ",
	domain.LanguageBilingual: "日本語と英語両方のハッシュタグをバランスよく",
}

func textStyleClause(style domain.TextStyle) string {
	if clause, ok := textStyleClauses[style]; ok {
		return clause
	}
	return textStyleClauses[domain.TextStyleSerious]
}

func characterClause(style domain.CharacterStyle) string {
	if clause, ok := characterClauses[style]; ok {
		return clause
	}
	return characterClauses[domain.CharacterNeutral]
}

func languageClause(lang domain.Language) string {
	if clause, ok := languageClauses[lang]; ok {
		return clause
	}
	return languageClauses[domain.LanguageJapanese]
}

func hashtagLanguageClause(lang domain.Language) string {
	if clause, ok := hashtagLanguageClauses[lang]; ok {
		return clause
	}
	return hashtagLanguageClauses[domain.LanguageJapanese]
}

// BuildPrompt assembles the generation instruction for one caption request.
// It is total: every option resolves through a lookup table with a default
// entry, so the result is always a well-formed prompt with both section
// markers in body-then-hashtags order.
func BuildPrompt(opts domain.CaptionOptions) string {
	count := opts.HashtagCount
	if count <= 0 {
		count = domain.DefaultHashtagCount
	}

	keywordInstruction := ""
	if keyword := strings.TrimSpace(opts.RequiredKeyword); keyword != "" {
		keywordInstruction = fmt.Sprintf(
			"重要: 投稿文に「%s」というキーワードを必ず含めてください。自然な形で文章に組み込んでください。\nハッシュタグにも#%sを必ず含めてください。\n\n",
			keyword, keyword)
	}

	return strings.TrimSpace(fmt.Sprintf(`
この画像を見て、Instagram投稿用の文章を生成してください。

%s言語設定: %s
文章のスタイル: %s
キャラクター: %s

以下の形式で出力してください：

%s
（ここに投稿文を書く）

%s
（%sを#付きで**厳密に%d個だけ**記載してください。必ず%d個にしてください。多くても少なくてもいけません）
`,
		keywordInstruction,
		languageClause(opts.Language),
		textStyleClause(opts.TextStyle),
		characterClause(opts.CharacterStyle),
		BodyMarker,
		HashtagMarker,
		hashtagLanguageClause(opts.Language),
		count, count,
	))
}
