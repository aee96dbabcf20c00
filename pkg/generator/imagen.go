package generator

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/shouni/naver-blog-kit/pkg/domain"
)

// ImagenBackend は Imagen 系モデル（フォールバック）のバックエンドです。
// Gemini API とは別の GenerateImages エンドポイントを利用します。
type ImagenBackend struct {
	client *genai.Client
	model  string
}

// NewImagenBackend は依存関係を注入して ImagenBackend を初期化します。
func NewImagenBackend(client *genai.Client, model string) (*ImagenBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &ImagenBackend{
		client: client,
		model:  model,
	}, nil
}

// Name は使用モデル名を返します。
func (b *ImagenBackend) Name() string {
	return b.model
}

// Generate はプロンプトから画像を1枚生成します。
func (b *ImagenBackend) Generate(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      aspectRatio,
		IncludeRAIReason: true,
	}

	resp, err := b.client.Models.GenerateImages(ctx, b.model, prompt, cfg)
	if err != nil {
		return nil, fmt.Errorf("Imagen画像生成エラー: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("Imagenから画像が返されませんでした")
	}

	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		// RAI フィルターによるブロックの可能性
		if generated.RAIFilteredReason != "" {
			return nil, fmt.Errorf("コンテンツがブロックされました: %s", generated.RAIFilteredReason)
		}
		return nil, fmt.Errorf("画像データが見つかりませんでした")
	}

	return &domain.ImageData{
		Data:     generated.Image.ImageBytes,
		MimeType: generated.Image.MIMEType,
		Model:    b.model,
	}, nil
}
