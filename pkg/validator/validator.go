package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/shouni/naver-blog-kit/pkg/config"
)

// ステータス値。Result.Status はこのいずれかになります。
const (
	StatusOK    = "ok"
	StatusUnder = "under"
	StatusOver  = "over"
)

var (
	// Naver ブログ本文の画像プレースホルダー（例: [이미지 1 삽입], [이미지 2 삽입 - 차트]）
	imagePlaceholder = regexp.MustCompile(`\[이미지\s*\d+\s*삽입[^\]]*\]`)
	spaceRun         = regexp.MustCompile(`[ \t]+`)
	newlineRun       = regexp.MustCompile(`\n+`)
	headingPattern   = regexp.MustCompile(`(?is)<h([23])[^>]*>(.*?)</h[23]>`)
)

// Result は文字数検証の結果です。呼び出しごとに再計算され、永続化されません。
type Result struct {
	CharCount  int    // 実測文字数（ルーン数）
	Target     int    // 目標文字数
	MinChars   int    // 下限
	MaxChars   int    // 上限
	IsValid    bool   // 範囲内か（境界値を含む）
	Status     string // ok / under / over
	Difference int    // 目標との差（正: 超過、負: 不足）
	Message    string // 人間向けステータスメッセージ
}

// Section は h2/h3 で区切られたセクション単位の文字数です。
type Section struct {
	Title     string
	CharCount int
}

// StripTags はHTMLタグを取り除き、読者に見えるテキストだけを残します。
// style / script の中身も除外します。壊れたマークアップでも失敗せず、
// トークナイザーによるベストエフォートで処理します。
func StripTags(content string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(content))

	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF も解析エラーもここに到達する。途中まで集めたテキストを返す
			return sb.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "style" || tag == "script" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "style" || tag == "script") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

// removeNonContent は文字数に数えない要素（画像プレースホルダー）を除去します。
func removeNonContent(text string) string {
	return imagePlaceholder.ReplaceAllString(text, "")
}

// normalizeWhitespace は連続する空白を1つにまとめ、改行を空白1つとして扱います。
func normalizeWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CountContentChars はHTML本文の可視文字数を数えます。
// タグ・プレースホルダー・styleブロックを除外し、空白込みのルーン数を返します。
func CountContentChars(content string) int {
	text := StripTags(content)
	text = removeNonContent(text)
	text = normalizeWhitespace(text)
	return utf8.RuneCountInString(text)
}

// Validate は本文の文字数を設定の目標・許容範囲と照合します。
// 下限・上限が未設定（0）の場合は 目標±許容誤差 から導出します。
// エラーを返すことはありません。
func Validate(content string, cfg config.WritingConfig) Result {
	target := cfg.CharCount
	minChars := cfg.MinChars
	maxChars := cfg.MaxChars
	if minChars == 0 {
		minChars = target - cfg.CharTolerance
	}
	if maxChars == 0 {
		maxChars = target + cfg.CharTolerance
	}

	count := CountContentChars(content)

	result := Result{
		CharCount:  count,
		Target:     target,
		MinChars:   minChars,
		MaxChars:   maxChars,
		Difference: count - target,
	}

	switch {
	case count < minChars:
		result.Status = StatusUnder
		result.Message = fmt.Sprintf("⚠️ 文字数不足: %d字（最低 %d字、あと %d字必要）",
			count, minChars, minChars-count)
	case count > maxChars:
		result.Status = StatusOver
		result.Message = fmt.Sprintf("⚠️ 文字数超過: %d字（上限 %d字、%d字オーバー）",
			count, maxChars, count-maxChars)
	default:
		result.Status = StatusOK
		result.IsValid = true
		result.Message = fmt.Sprintf("✅ 文字数OK: %d字（目標: %d字）", count, target)
	}

	return result
}

// SectionBreakdown は h2/h3 見出しごとのセクション別文字数を返します。
// 見出しが無い場合は本文全体を1セクションとして扱います。
func SectionBreakdown(content string) []Section {
	matches := headingPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return []Section{{Title: "전체", CharCount: CountContentChars(content)}}
	}

	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		title := normalizeWhitespace(StripTags(content[m[4]:m[5]]))

		start := m[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		sections = append(sections, Section{
			Title:     title,
			CharCount: CountContentChars(content[start:end]),
		})
	}
	return sections
}

// SuggestAdjustment は検証結果に応じた調整の提案文を生成します。
func SuggestAdjustment(result Result) string {
	if result.IsValid {
		return "文字数は適正範囲です。調整は不要です。"
	}

	var lines []string
	switch result.Status {
	case StatusUnder:
		needed := result.MinChars - result.CharCount
		lines = append(lines,
			fmt.Sprintf("📝 あと %d字以上の追記が必要です。", needed),
			"調整の目安:",
			"  - 핵심 정보 セクションへ具体例を追加する",
			"  - 실전 팁 セクションを拡充する",
			"  - 関連する統計やデータを加える",
		)
	case StatusOver:
		excess := result.CharCount - result.MaxChars
		lines = append(lines,
			fmt.Sprintf("✂️ %d字以上の削減が必要です。", excess),
			"調整の目安:",
			"  - 重複する内容を削る",
			"  - 冗長な言い回しを簡潔にする",
			"  - 不要な修飾語を削除する",
		)
	}
	return strings.Join(lines, "\n")
}
