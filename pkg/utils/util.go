package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	filenameDisallowed = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	hyphenRun          = regexp.MustCompile(`-+`)
	blankLineRun       = regexp.MustCompile(`\n{3,}`)
)

// NormalizeFilename はテキストをファイル名として安全な形に正規化します。
// ハングル・英数字・ハイフン・アンダースコアのみを残し、空白はハイフンに
// 置き換えます。maxLength はルーン数で切り詰めます。
func NormalizeFilename(text string, maxLength int) string {
	// NFC 正規化（macOS で分解されたハングルを合成形へ戻す）
	text = norm.NFC.String(text)

	text = filenameDisallowed.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), "-")
	text = hyphenRun.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")

	runes := []rune(text)
	if maxLength > 0 && len(runes) > maxLength {
		text = strings.TrimRight(string(runes[:maxLength]), "-")
	}
	return text
}

// TodayDate は今日の日付を指定フォーマットで返します。
// format が空の場合は "2006-01-02" を使います。
func TodayDate(format string) string {
	if format == "" {
		format = "2006-01-02"
	}
	return time.Now().Format(format)
}

// CreateOutputPath は 基準ディレクトリ/日付/正規化トピック の出力パスを組み立てます。
// date が空の場合は今日の日付を使います。
func CreateOutputPath(baseDir, topic, date string) string {
	if date == "" {
		date = TodayDate("")
	}
	return filepath.Join(baseDir, date, NormalizeFilename(topic, 50))
}

// CleanText は余分な空白を除去しテキストを整えます。
// 3連以上の改行は2つへ、各行の末尾空白は削除します。
func CleanText(text string) string {
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractExtensionFromURL はURLから画像拡張子を推定します。不明な場合は jpg。
func ExtractExtensionFromURL(rawURL string) string {
	cleanURL := strings.ToLower(strings.SplitN(rawURL, "?", 2)[0])
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"} {
		if strings.HasSuffix(cleanURL, ext) {
			return ext[1:]
		}
	}
	return "jpg"
}

// FormatImageFilename は収集画像の連番ファイル名を組み立てます。
// 例: FormatImageFilename(1, "뉴스", "금리 비교표", "jpg") → "01_뉴스_금리비교표.jpg"
func FormatImageFilename(index int, source, description, extension string) string {
	cleanDesc := NormalizeFilename(strings.ReplaceAll(description, " ", ""), 20)
	return fmt.Sprintf("%02d_%s_%s.%s", index, source, cleanDesc, extension)
}

// TruncateText はルーン数で切り詰め、suffix を付けます。
func TruncateText(text string, maxLength int, suffix string) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + suffix
}
