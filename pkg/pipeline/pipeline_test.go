package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/naver-blog-kit/pkg/config"
	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/overlay"
)

// testConfig はリトライ待ちの無いテスト向け設定です。
func testConfig() config.GeminiConfig {
	return config.GeminiConfig{
		Timeout:         30,
		RetryCount:      1,
		RateLimitPerMin: 600,
		Concurrency:     2,
	}
}

func newTestPipeline(t *testing.T, primary, fallback *mockBackend, cfg config.GeminiConfig) (*Pipeline, *countingWaiter) {
	t.Helper()
	var p *Pipeline
	var err error
	if fallback != nil {
		p, err = New(primary, fallback, nil, cfg)
	} else {
		p, err = New(primary, nil, nil, cfg)
	}
	require.NoError(t, err)

	waiter := &countingWaiter{}
	p.limiter = waiter
	return p, waiter
}

func makeRequests(n int) []domain.ImageRequest {
	reqs := make([]domain.ImageRequest, n)
	for i := range reqs {
		reqs[i] = domain.ImageRequest{
			Index:       i + 1,
			Role:        "인포그래픽",
			Prompt:      fmt.Sprintf("economic infographic %d", i+1),
			Filename:    fmt.Sprintf("%02d_인포그래픽.png", i+1),
			AspectRatio: "1:1",
		}
	}
	return reqs
}

func TestNew(t *testing.T) {
	t.Run("nilチェック: プライマリ必須", func(t *testing.T) {
		_, err := New(nil, nil, nil, testConfig())
		assert.Error(t, err)
	})
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("全件成功: 投入順のままファイルが保存されるのだ", func(t *testing.T) {
		primary := okBackend(t, "primary-model")
		p, waiter := newTestPipeline(t, primary, nil, testConfig())

		dir := t.TempDir()
		result, err := p.Run(ctx, makeRequests(4), dir, false)
		require.NoError(t, err)

		assert.Equal(t, 4, result.Total)
		assert.Equal(t, 4, result.SuccessCount())
		assert.Equal(t, 0, result.FailedCount())
		assert.InDelta(t, 100.0, result.SuccessRate(), 0.001)

		// Results は投入順
		for i, r := range result.Results {
			assert.Equal(t, i+1, r.Request.Index, "投入順が保たれていない")
			assert.Equal(t, "primary-model", r.ModelUsed)
			_, statErr := os.Stat(r.FilePath)
			assert.NoError(t, statErr, "保存ファイルが存在しない: %s", r.FilePath)
		}

		// 外部API呼び出し1回につきレート制限を1回消費する
		assert.Equal(t, 4, waiter.count())
		assert.Equal(t, 4, primary.callCount())
	})

	t.Run("クォータ枯渇: バッチの残りはプライマリを叩かずフォールバックへ行くのだ", func(t *testing.T) {
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				return nil, errors.New("googleapi: Error 429: QUOTA_EXCEEDED")
			},
		}
		fallback := okBackend(t, "fallback-model")

		cfg := testConfig()
		cfg.Concurrency = 1 // 切り替えタイミングを決定的にする
		p, _ := newTestPipeline(t, primary, fallback, cfg)

		result, err := p.Run(ctx, makeRequests(3), t.TempDir(), false)
		require.NoError(t, err)

		assert.Equal(t, 3, result.SuccessCount())
		for _, r := range result.Results {
			assert.Equal(t, "fallback-model", r.ModelUsed)
		}

		// 1件目でクォータ枯渇を検知した後、2件目以降はプライマリを呼ばない
		assert.Equal(t, 1, primary.callCount())
		assert.Equal(t, 3, fallback.callCount())
	})

	t.Run("フォールバック対象外のエラーは即失敗し、フォールバックを呼ばないのだ", func(t *testing.T) {
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				return nil, errors.New("dial tcp: no such host")
			},
		}
		fallback := okBackend(t, "fallback-model")
		p, _ := newTestPipeline(t, primary, fallback, testConfig())

		result, err := p.Run(ctx, makeRequests(1), t.TempDir(), false)
		require.NoError(t, err)

		assert.Equal(t, 0, result.SuccessCount())
		assert.Contains(t, result.Results[0].Err, "no such host")
		assert.Equal(t, 0, fallback.callCount())
	})

	t.Run("1件の失敗が他の要求を巻き込まないのだ", func(t *testing.T) {
		data := tinyPNG(t)
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				if prompt == "economic infographic 2" {
					return nil, errors.New("content blocked by SAFETY settings")
				}
				return &domain.ImageData{Data: data, MimeType: "image/png", Model: "primary-model"}, nil
			},
		}
		p, _ := newTestPipeline(t, primary, nil, testConfig())

		result, err := p.Run(ctx, makeRequests(3), t.TempDir(), false)
		require.NoError(t, err)

		assert.Equal(t, 2, result.SuccessCount())
		assert.Equal(t, 1, result.FailedCount())

		// 投入順は失敗を挟んでも保たれる
		assert.True(t, result.Results[0].Success())
		assert.False(t, result.Results[1].Success())
		assert.True(t, result.Results[2].Success())
	})

	t.Run("タイムアウト: 応答しないバックエンドは失敗として記録されるのだ", func(t *testing.T) {
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		p, _ := newTestPipeline(t, primary, nil, testConfig())
		p.timeout = 50 * time.Millisecond

		result, err := p.Run(ctx, makeRequests(1), t.TempDir(), false)
		require.NoError(t, err)

		assert.Equal(t, 0, result.SuccessCount())
		assert.Contains(t, result.Results[0].Err, "context deadline exceeded")
	})

	t.Run("リトライ: 一時エラーは同一バックエンドで再試行されるのだ", func(t *testing.T) {
		data := tinyPNG(t)
		attempts := 0
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				attempts++
				if attempts == 1 {
					return nil, errors.New("503 service unavailable")
				}
				return &domain.ImageData{Data: data, MimeType: "image/png", Model: "primary-model"}, nil
			},
		}

		cfg := testConfig()
		cfg.RetryCount = 2
		p, waiter := newTestPipeline(t, primary, nil, cfg)

		result, err := p.Run(ctx, makeRequests(1), t.TempDir(), false)
		require.NoError(t, err)

		assert.Equal(t, 1, result.SuccessCount())
		assert.Equal(t, 2, primary.callCount())
		assert.Equal(t, 2, waiter.count(), "リトライも含め呼び出しごとにレート制限を消費する")
	})

	t.Run("テキスト合成する要求は背景専用プロンプトへ変換されるのだ", func(t *testing.T) {
		data := tinyPNG(t)
		var mu sync.Mutex
		prompts := map[string]string{}
		primary := &mockBackend{
			name: "primary-model",
			generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
				mu.Lock()
				prompts[aspectRatio] = prompt
				mu.Unlock()
				return &domain.ImageData{Data: data, MimeType: "image/png", Model: "primary-model"}, nil
			},
		}

		proc, err := overlay.NewProcessor("")
		require.NoError(t, err)
		p, err := New(primary, nil, proc, testConfig())
		require.NoError(t, err)
		p.limiter = &countingWaiter{}

		reqs := []domain.ImageRequest{
			{
				Index: 1, Role: "썸네일", Filename: "01_썸네일.png", AspectRatio: "16:9",
				Prompt:  `Finance thumbnail, green gradient, text overlay: "적금 가이드"`,
				Overlay: &domain.OverlayText{MainText: "적금 가이드", FontSize: 13},
			},
			{
				Index: 2, Role: "본문", Filename: "02_본문.png", AspectRatio: "1:1",
				Prompt: "Clean chart infographic",
			},
		}

		result, err := p.Run(ctx, reqs, t.TempDir(), true)
		require.NoError(t, err)
		require.Equal(t, 2, result.SuccessCount())

		// 合成対象は文字描画指示が除去され、文字禁止の明示指示が付く
		assert.NotContains(t, prompts["16:9"], "text overlay")
		assert.Contains(t, prompts["16:9"], "NO TEXT, NO LETTERS, NO WORDS.")

		// 合成しない要求のプロンプトはそのまま
		assert.Equal(t, "Clean chart infographic", prompts["1:1"])
	})

	t.Run("テキスト合成: Overlay付き要求はOverlaidが立つのだ", func(t *testing.T) {
		primary := okBackend(t, "primary-model")
		proc, err := overlay.NewProcessor("")
		require.NoError(t, err)

		p, err := New(primary, nil, proc, testConfig())
		require.NoError(t, err)
		p.limiter = &countingWaiter{}

		reqs := makeRequests(2)
		reqs[0].Overlay = &domain.OverlayText{MainText: "ISA GUIDE", FontSize: 13, Position: "center"}

		result, err := p.Run(ctx, reqs, t.TempDir(), true)
		require.NoError(t, err)

		assert.Equal(t, 2, result.SuccessCount())
		assert.Equal(t, 1, result.OverlayCount)
		assert.True(t, result.Results[0].Overlaid)
		assert.False(t, result.Results[1].Overlaid)
	})
}

func TestPipeline_ProcessGuide(t *testing.T) {
	ctx := context.Background()

	t.Run("ガイド文書から抽出した要求をそのまま実行するのだ", func(t *testing.T) {
		guideDoc := "## [이미지 1] 썸네일\n\n```\nwide thumbnail background, financial theme\n```\n\naspect_ratio: 16:9\n"

		primary := okBackend(t, "primary-model")
		p, _ := newTestPipeline(t, primary, nil, testConfig())

		dir := t.TempDir()
		result, err := p.ProcessGuide(ctx, guideDoc, dir, false)
		require.NoError(t, err)

		require.Equal(t, 1, result.Total)
		require.True(t, result.Results[0].Success())
		assert.Equal(t, dir, filepath.Dir(result.Results[0].FilePath))
	})

	t.Run("画像セクションの無い文書はエラーを返すのだ", func(t *testing.T) {
		primary := okBackend(t, "primary-model")
		p, _ := newTestPipeline(t, primary, nil, testConfig())

		_, err := p.ProcessGuide(ctx, "# ただの文書\n\n本文だけ。", t.TempDir(), false)
		assert.Error(t, err)
	})
}
