package guide

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/prompt"
	"github.com/shouni/naver-blog-kit/pkg/utils"
)

// ガイド文書のセクション見出し（例: ## [이미지 1] 썸네일 / ## [Image 2] Infographic）
var sectionHeading = regexp.MustCompile(`^\[(?:이미지|Image)\s*(\d+)\]\s*(.*)$`)

var (
	kvMainText  = regexp.MustCompile(`(?i)main_text\s*[:=]\s*["'](.+?)["']`)
	kvSubText   = regexp.MustCompile(`(?i)sub_text\s*[:=]\s*["'](.+?)["']`)
	kvPosition  = regexp.MustCompile(`(?i)position\s*[:=]\s*["'](.+?)["']`)
	kvFontSize  = regexp.MustCompile(`(?i)font_size\s*[:=]\s*(\d+)`)
	kvFontColor = regexp.MustCompile(`(?i)font_color\s*[:=]\s*["'](.+?)["']`)
	kvShadow    = regexp.MustCompile(`(?i)shadow\s*[:=]\s*(true|false)`)
	kvBgBox     = regexp.MustCompile(`(?i)background_box\s*[:=]\s*(true|false)`)
	kvAspect    = regexp.MustCompile(`(?i)aspect_ratio\s*[:=]\s*["'](.+?)["']`)
)

// スタイルガイドの行（例: - 색상: 따뜻한 노랑 / - Mood: friendly）
var (
	kvColor  = regexp.MustCompile(`(?im)^[-*\s]*(?:색상|Colors?)\s*[:：]\s*(.+?)\s*$`)
	kvMood   = regexp.MustCompile(`(?im)^[-*\s]*(?:분위기|Mood)\s*[:：]\s*(.+?)\s*$`)
	kvFormat = regexp.MustCompile(`(?im)^[-*\s]*(?:형식|Format)\s*[:：]\s*(.+?)\s*$`)
)

// section はガイド文書から切り出した1画像分のまとまりです。
type section struct {
	index  int
	role   string
	prompt string // 最初のコードフェンスの中身
	raw    string // セクション全体の生テキスト（kv抽出・モード判定用）
}

// Parse はガイドMarkdownを解析し、投入順の画像生成要求を返します。
// 参照画像(📷)・SVG(🔷)セクションと、プロンプトを持たない不正なセクションは
// 警告ログを出してスキップします。解析そのものが失敗することはありません。
func Parse(content string) []domain.ImageRequest {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	sections := splitSections(source, doc)

	requests := make([]domain.ImageRequest, 0, len(sections))
	for _, sec := range sections {
		req, ok := buildRequest(sec)
		if !ok {
			continue
		}
		requests = append(requests, req)
	}
	return requests
}

// splitSections はトップレベルを走査し、[이미지 N] 見出しごとにノードを束ねます。
func splitSections(source []byte, doc ast.Node) []section {
	var sections []section
	var current *section

	flush := func() {
		if current != nil {
			sections = append(sections, *current)
			current = nil
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok && heading.Level == 2 {
			flush()

			title := strings.TrimSpace(nodeRawText(source, heading))
			m := sectionHeading.FindStringSubmatch(title)
			if m == nil {
				continue
			}

			index, _ := strconv.Atoi(m[1])
			role := strings.TrimSpace(m[2])
			if role == "" {
				role = fmt.Sprintf("Image %d", index)
			}
			current = &section{index: index, role: role}
			continue
		}

		if current == nil {
			continue
		}

		if fenced, ok := n.(*ast.FencedCodeBlock); ok {
			if current.prompt == "" {
				current.prompt = strings.TrimSpace(nodeRawText(source, fenced))
			}
			continue
		}

		current.raw += nodeRawText(source, n)
	}
	flush()

	return sections
}

// nodeRawText はノード配下のブロックが覆う生テキストを連結して返します。
func nodeRawText(source []byte, root ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// buildRequest はセクションを ImageRequest へ変換します。対象外モードや
// 不正セクションは false を返します。
func buildRequest(sec section) (domain.ImageRequest, bool) {
	switch {
	case strings.Contains(sec.raw, "📷"),
		strings.Contains(sec.raw, "참고 이미지"),
		strings.Contains(sec.raw, "Reference Image"):
		slog.Info("参照画像セクションは生成対象外のためスキップします",
			"index", sec.index, "role", sec.role)
		return domain.ImageRequest{}, false

	case strings.Contains(sec.raw, "🔷"),
		strings.Contains(sec.raw, "SVG"):
		slog.Info("SVGセクションは生成対象外のためスキップします",
			"index", sec.index, "role", sec.role)
		return domain.ImageRequest{}, false
	}

	if sec.prompt == "" {
		slog.Warn("プロンプトが無い不正なセクションをスキップします",
			"index", sec.index, "role", sec.role)
		return domain.ImageRequest{}, false
	}

	req := domain.ImageRequest{
		Index:       sec.index,
		Role:        sec.role,
		Prompt:      sec.prompt,
		Filename:    buildFilename(sec.index, sec.role),
		AspectRatio: "1:1",
	}

	if m := kvAspect.FindStringSubmatch(sec.raw); m != nil {
		req.AspectRatio = m[1]
	}
	req.Overlay = extractOverlay(sec.raw)

	// スタイルガイドの韓国語指定を英語の指示としてプロンプトへ反映する
	if suffix := styleSuffix(sec.raw); suffix != "" {
		req.Prompt += " " + suffix
	}

	return req, true
}

// styleSuffix はセクションのスタイルガイド行から色・雰囲気・形式を抽出し、
// 英語へ変換した追加指示を組み立てます。
func styleSuffix(raw string) string {
	var color, mood, format string
	if m := kvColor.FindStringSubmatch(raw); m != nil {
		color = m[1]
	}
	if m := kvMood.FindStringSubmatch(raw); m != nil {
		mood = m[1]
	}
	if m := kvFormat.FindStringSubmatch(raw); m != nil {
		format = m[1]
	}
	return prompt.StyleSuffix(color, mood, format)
}

// extractOverlay はセクションの key: value 行からテキスト合成指定を抽出します。
// main_text が無い場合は合成なしとして nil を返します。
func extractOverlay(raw string) *domain.OverlayText {
	m := kvMainText.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	overlay := &domain.OverlayText{
		MainText:    m[1],
		Position:    "center",
		FontSize:    48,
		FontColor:   "#FFFFFF",
		Shadow:      true,
		ShadowColor: "rgba(0,0,0,0.5)",
		BoxColor:    "rgba(0,0,0,0.3)",
		BoxPadding:  20,
	}

	if m := kvSubText.FindStringSubmatch(raw); m != nil {
		overlay.SubText = m[1]
	}
	if m := kvPosition.FindStringSubmatch(raw); m != nil {
		overlay.Position = m[1]
	}
	if m := kvFontSize.FindStringSubmatch(raw); m != nil {
		if size, err := strconv.Atoi(m[1]); err == nil {
			overlay.FontSize = size
		}
	}
	if m := kvFontColor.FindStringSubmatch(raw); m != nil {
		overlay.FontColor = m[1]
	}
	if m := kvShadow.FindStringSubmatch(raw); m != nil {
		overlay.Shadow = strings.EqualFold(m[1], "true")
	}
	if m := kvBgBox.FindStringSubmatch(raw); m != nil {
		overlay.BackgroundBox = strings.EqualFold(m[1], "true")
	}

	return overlay
}

// buildFilename は連番と用途ラベルから決定的なファイル名を組み立てます。
// 例: 1, "썸네일" → "01_썸네일.png"
func buildFilename(index int, role string) string {
	clean := utils.NormalizeFilename(role, 20)
	clean = strings.ReplaceAll(clean, "-", "_")
	if clean == "" {
		clean = "image"
	}
	return fmt.Sprintf("%02d_%s.png", index, clean)
}
