// Package writer は完成した原稿・画像ガイド・参考資料をプロジェクトの
// posts/ ディレクトリへ書き出し、完了レポートを組み立てます。
package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/utils"
	"github.com/shouni/naver-blog-kit/pkg/validator"
	"github.com/shouni/naver-blog-kit/pkg/workflow"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render は {name} 形式のプレースホルダーを values で置換します。
// 未提供のプレースホルダーが残る場合はエラーを返します。
func Render(template string, values map[string]string) (string, error) {
	var missing []string

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := values[name]; ok {
			return value
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("未解決のプレースホルダーがあります: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}

// SaveDraft は本文原稿を posts/ へHTMLとして保存します。
func SaveDraft(c *workflow.Context, content string) (string, error) {
	filename := fmt.Sprintf("%s_%s.html", c.Date, utils.NormalizeFilename(c.Topic, 50))
	return save(c, "html", filename, content)
}

// SaveImageGuide は画像生成ガイドを posts/ へ保存します。
func SaveImageGuide(c *workflow.Context, content string) (string, error) {
	return save(c, "image_guide", "image_guide.md", content)
}

// SaveReferences は参考資料一覧を posts/ へ保存します。
func SaveReferences(c *workflow.Context, content string) (string, error) {
	return save(c, "references", "references.md", content)
}

func save(c *workflow.Context, kind, filename, content string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("ワークフローコンテキストがnilです")
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("保存する内容が空です")
	}

	if err := os.MkdirAll(c.PostsDir(), 0o755); err != nil {
		return "", fmt.Errorf("postsディレクトリの作成に失敗しました: %w", err)
	}

	path := filepath.Join(c.PostsDir(), filename)
	if err := os.WriteFile(path, []byte(utils.CleanText(content)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("原稿の保存に失敗しました: %w", err)
	}

	// 保存したファイルをプロジェクトメタデータへ記録する。失敗は致命ではない
	if _, err := workflow.UpdateMetadata(c.ProjectDir, func(m *workflow.Metadata) {
		m.Files[kind] = path
	}); err != nil {
		slog.Warn("メタデータの更新に失敗しました", "kind", kind, "error", err)
	}

	return path, nil
}

// CompletionSummary はプロジェクト全体の完了レポートを組み立てます。
// 検証結果・画像生成結果は未実施（nil）でも構いません。
func CompletionSummary(c *workflow.Context, v *validator.Result, p *domain.PipelineResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "✅ プロジェクト完了: %s (%s)\n", c.Topic, c.Date)
	fmt.Fprintf(&sb, "📁 %s\n", c.ProjectDir)

	if v != nil {
		fmt.Fprintf(&sb, "📝 文字数: %d字 (目標 %d字, %s)\n", v.CharCount, v.Target, v.Status)
	}
	if p != nil {
		fmt.Fprintf(&sb, "%s\n", p.Summary())
	}
	if tags, ok := c.Artifact("tags"); ok {
		fmt.Fprintf(&sb, "🏷️ タグ: %s\n", tags)
	}

	return strings.TrimRight(sb.String(), "\n")
}
