// Package prompt は画像生成プロンプトの最適化を提供します。
// テキスト合成前提の背景生成向けに文字描画指示を除去する処理と、
// スタイルガイドの韓国語表現を英語へ変換する処理を含みます。
package prompt

import (
	"regexp"
	"strings"
)

// 文字描画に関する指示のパターン。背景のみ生成するモードで除去します。
var textInstructionPatterns = []*regexp.Regexp{
	// text overlay 系（引用符付きの文言指定）
	regexp.MustCompile(`(?i)[,\s]*(?:include|with|add)?[,\s]*(?:bold|large|big|small)?[,\s]*(?:Korean|English|Chinese)?[,\s]*text\s*overlay[:\s]*["'][^"']*["']`),
	regexp.MustCompile(`(?i)[,\s]*(?:bold|large|big)?[,\s]*["'][^"']*["'][,\s]*(?:Korean|English)?\s*text\s*overlay`),
	regexp.MustCompile(`(?i)[,\s]*text\s*overlay[:\s]*["'][^"']*["']`),
	regexp.MustCompile(`(?i)[,\s]*["'][^"']*["'][,\s]*text`),
	// text を含める指示
	regexp.MustCompile(`(?i)[,\s]*include\s+(?:bold\s+)?(?:Korean\s+)?text[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*(?:bold|large)\s+(?:Korean\s+)?text[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*Korean\s+text[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*text\s+saying[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*with\s+text[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*text\s+reading[^,.]*`),
	// タイポグラフィ系
	regexp.MustCompile(`(?i)[,\s]*typography[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*lettering[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*title\s+text[^,.]*`),
	regexp.MustCompile(`(?i)[,\s]*headline[^,.]*`),
}

var (
	doubleComma   = regexp.MustCompile(`,\s*,`)
	spaceRun      = regexp.MustCompile(`\s+`)
	trailingComma = regexp.MustCompile(`,\s*$`)
	leadingComma  = regexp.MustCompile(`^\s*,`)
)

// StripTextInstructions はプロンプトから文字描画の指示を取り除きます。
// ローカルでテキストを合成する場合、モデル側で文字が描かれると二重になるため、
// 背景生成の前に必ず通します。
func StripTextInstructions(text string) string {
	result := text
	for _, pattern := range textInstructionPatterns {
		result = pattern.ReplaceAllString(result, "")
	}

	result = doubleComma.ReplaceAllString(result, ",")
	result = spaceRun.ReplaceAllString(result, " ")
	result = trailingComma.ReplaceAllString(result, "")
	result = leadingComma.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// ForBackground は背景のみ生成するためのプロンプトへ変換します。
// 文字描画指示を除去し、文字を入れない旨の明示指示を付け足します。
func ForBackground(text string) string {
	result := StripTextInstructions(text)
	if !strings.Contains(strings.ToLower(result), "no text") {
		result += " NO TEXT, NO LETTERS, NO WORDS."
	}
	return result
}

// 韓国語→英語の変換表。最初に一致したキーのみ置換します。
var colorPairs = []struct{ kr, en string }{
	{"파스텔 블루", "soft pastel blue"},
	{"파스텔 핑크", "soft pastel pink"},
	{"민트 그린", "mint green, seafoam"},
	{"따뜻한 노랑", "warm yellow, golden yellow"},
	{"네이비", "navy blue, deep blue"},
	{"골드", "gold, champagne gold"},
	{"코랄 핑크", "coral pink, soft coral"},
	{"그레이", "gray, neutral gray"},
	{"화이트", "white, clean white"},
	{"블랙", "black, elegant black"},
	{"베이지", "beige, warm beige"},
	{"그린", "green, fresh green"},
	{"오렌지", "orange, warm orange"},
	{"레드", "red, vibrant red"},
	{"퍼플", "purple, elegant purple"},
	{"그라데이션", "gradient"},
}

var moodPairs = []struct{ kr, en string }{
	{"따뜻한", "warm, cozy"},
	{"친근한", "friendly, approachable"},
	{"전문적", "professional, expert"},
	{"신뢰감", "trustworthy, reliable"},
	{"깔끔한", "clean, neat"},
	{"모던한", "modern, contemporary"},
	{"세련된", "sophisticated, elegant"},
	{"밝은", "bright, cheerful"},
	{"차분한", "calm, serene"},
	{"활기찬", "energetic, lively"},
	{"감성적", "emotional, sentimental"},
	{"정보성", "informative, educational"},
	{"눈에 띄는", "eye-catching, attention-grabbing"},
	{"클릭 유도", "click-worthy, engaging"},
	{"희망적", "hopeful, optimistic"},
	{"사랑스러운", "lovely, adorable"},
}

var formatPairs = []struct{ kr, en string }{
	{"인포그래픽", "infographic, data visualization"},
	{"일러스트", "illustration, illustrated"},
	{"사진풍", "photographic, photo-realistic"},
	{"플랫디자인", "flat design, minimalist"},
	{"모던 썸네일", "modern thumbnail design"},
	{"차트", "chart, graph"},
	{"다이어그램", "diagram, flowchart"},
	{"체크리스트", "checklist, list design"},
	{"비교표", "comparison table, comparison chart"},
	{"프로세스", "process diagram, step-by-step"},
}

// TranslateColor は色指定の韓国語表現を英語へ変換します。
// 一致する表現が無い場合は原文のまま返します。
func TranslateColor(value string) string {
	for _, p := range colorPairs {
		if strings.Contains(value, p.kr) {
			return strings.Replace(value, p.kr, p.en, 1)
		}
	}
	return value
}

// TranslateMood は雰囲気指定の韓国語表現を英語へ変換します。
// 複数の表現が含まれる場合はすべて置換します。
func TranslateMood(value string) string {
	result := value
	for _, p := range moodPairs {
		result = strings.ReplaceAll(result, p.kr, p.en)
	}
	return result
}

// TranslateFormat は形式指定の韓国語表現を英語へ変換します。
func TranslateFormat(value string) string {
	result := value
	for _, p := range formatPairs {
		result = strings.ReplaceAll(result, p.kr, p.en)
	}
	return result
}

// StyleSuffix はスタイルガイドの色・雰囲気・形式をプロンプト末尾へ足す
// 英語の指示文に変換します。すべて空の場合は空文字列を返します。
func StyleSuffix(color, mood, format string) string {
	var parts []string
	if color != "" {
		parts = append(parts, "Color scheme: "+TranslateColor(color))
	}
	if mood != "" {
		parts = append(parts, "Mood: "+TranslateMood(mood))
	}
	if format != "" {
		parts = append(parts, "Style: "+TranslateFormat(format))
	}
	return strings.Join(parts, " ")
}
