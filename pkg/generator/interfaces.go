package generator

import (
	"context"

	"github.com/shouni/naver-blog-kit/pkg/domain"
)

// ImageBackend は外部の画像生成APIエンドポイント1つを抽象化します。
// パイプラインはプライマリ→フォールバックの順でこのインターフェースを叩きます。
type ImageBackend interface {
	// Name はモデル名（ログ・結果記録用）を返します。
	Name() string
	// Generate はプロンプトから画像を1枚生成します。
	Generate(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error)
}
