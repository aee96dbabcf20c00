package generator

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/naver-blog-kit/pkg/domain"
)

// GeminiBackend は Gemini 画像生成モデル（プライマリ）のバックエンドです。
type GeminiBackend struct {
	aiClient gemini.GenerativeModel
	model    string
}

// NewGeminiBackend は依存関係を注入して GeminiBackend を初期化します。
func NewGeminiBackend(aiClient gemini.GenerativeModel, model string) (*GeminiBackend, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &GeminiBackend{
		aiClient: aiClient,
		model:    model,
	}, nil
}

// Name は使用モデル名を返します。
func (b *GeminiBackend) Name() string {
	return b.model
}

// Generate はプロンプトから画像を1枚生成します。
func (b *GeminiBackend) Generate(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
	parts := []*genai.Part{{Text: prompt}}

	opts := gemini.GenerateOptions{
		AspectRatio: aspectRatio,
	}

	resp, err := b.aiClient.GenerateWithParts(ctx, b.model, parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}

	return parseToImageData(resp, b.model)
}

// parseToImageData は Gemini のレスポンスを解析して ImageData に変換します。
func parseToImageData(resp *gemini.Response, model string) (*domain.ImageData, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("Geminiからの有効な応答がありませんでした")
	}

	// 現在の仕様では、最初の候補 (Candidate) のみを利用する。
	candidate := resp.RawResponse.Candidates[0]

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &domain.ImageData{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
					Model:    model,
				}, nil
			}
		}
	}

	// 安全フィルター等によるブロックの確認
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("画像生成が異常終了しました (FinishReason: %s)", candidate.FinishReason)
	}

	return nil, fmt.Errorf("画像データが見つかりませんでした")
}
