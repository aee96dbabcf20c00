// Package collector はリサーチで見つけた参照画像を安全にダウンロードし、
// ブログ記事のプロジェクトディレクトリへ保存する機能を提供します。
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/imgutil"
	"github.com/shouni/naver-blog-kit/pkg/utils"
)

// これを超えるサイズの画像はJPEGへ再圧縮して保存します。
const compressThresholdBytes = 1 << 20

const compressQuality = 80

// Collector は参照画像のダウンローダーです。
type Collector struct {
	httpClient httpkit.ClientInterface
	urlChecker func(string) (bool, error)
}

// NewCollector は Collector を初期化します。
func NewCollector(httpClient httpkit.ClientInterface) (*Collector, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpクライアントがnilです")
	}
	return &Collector{httpClient: httpClient, urlChecker: IsSafeURL}, nil
}

// Collect は画像リストを順次ダウンロードし、outputDir へ保存します。
// 1件の失敗は記録のみ行い、残りの処理を続行します。
func (c *Collector) Collect(ctx context.Context, images []domain.ImageInfo, outputDir string) (*domain.CollectionResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	result := &domain.CollectionResult{
		Total:     len(images),
		Images:    make([]domain.ImageInfo, len(images)),
		OutputDir: outputDir,
	}

	for i, info := range images {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		saved := info
		path, err := c.download(ctx, i+1, info, outputDir)
		if err != nil {
			slog.Warn("参照画像のダウンロードに失敗しました", "url", info.URL, "error", err)
			saved.Err = err.Error()
		} else {
			saved.LocalPath = path
			saved.Success = true
		}
		result.Images[i] = saved
	}

	slog.Info("参照画像の収集が完了しました",
		"success", result.SuccessCount(), "total", result.Total, "dir", outputDir)
	return result, nil
}

// download は1件の画像を検証・取得・保存し、保存先パスを返します。
func (c *Collector) download(ctx context.Context, index int, info domain.ImageInfo, outputDir string) (string, error) {
	if ok, err := c.urlChecker(info.URL); !ok {
		return "", fmt.Errorf("安全でないURLのためスキップします: %w", err)
	}

	data, err := c.httpClient.FetchBytes(ctx, info.URL)
	if err != nil {
		return "", fmt.Errorf("画像の取得に失敗しました: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("空のレスポンスを受信しました")
	}

	ext := utils.ExtractExtensionFromURL(info.URL)
	if len(data) > compressThresholdBytes && ext != "gif" && ext != "svg" {
		compressed, err := imgutil.CompressToJPEG(data, compressQuality)
		if err != nil {
			slog.Warn("画像の再圧縮に失敗したため元データを保存します", "url", info.URL, "error", err)
		} else {
			data = compressed
			ext = "jpg"
		}
	}

	filename := utils.FormatImageFilename(index, "참고", info.Description, ext)
	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return path, nil
}
