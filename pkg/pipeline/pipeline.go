// Package pipeline はガイド文書から抽出した画像生成要求を、レート制限・
// リトライ・フォールバック付きで並列実行するバッチ処理を提供します。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/shouni/naver-blog-kit/pkg/config"
	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/generator"
	"github.com/shouni/naver-blog-kit/pkg/guide"
	"github.com/shouni/naver-blog-kit/pkg/imgutil"
	"github.com/shouni/naver-blog-kit/pkg/overlay"
	"github.com/shouni/naver-blog-kit/pkg/prompt"
)

// rateWaiter は *rate.Limiter の利用部分だけを切り出したものです。
type rateWaiter interface {
	Wait(ctx context.Context) error
}

// Pipeline は画像生成バッチの実行本体です。
// backends[0] がプライマリ、backends[1] があればフォールバックです。
type Pipeline struct {
	backends    []generator.ImageBackend
	overlayProc *overlay.Processor
	limiter     rateWaiter
	concurrency int64
	retryCount  uint
	timeout     time.Duration

	// クォータ枯渇を検知した後、バッチの残りをフォールバックから始めるフラグ
	fallbackActive atomic.Bool
}

// New は Pipeline を初期化します。fallback と overlayProc は nil を許容します。
func New(primary, fallback generator.ImageBackend, overlayProc *overlay.Processor, cfg config.GeminiConfig) (*Pipeline, error) {
	if primary == nil {
		return nil, fmt.Errorf("プライマリバックエンドがnilです")
	}

	backends := []generator.ImageBackend{primary}
	if fallback != nil {
		backends = append(backends, fallback)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 10
	}

	return &Pipeline{
		backends:    backends,
		overlayProc: overlayProc,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		concurrency: int64(concurrency),
		retryCount:  uint(retryCount),
		timeout:     timeout,
	}, nil
}

// ProcessGuide はガイド文書を解析し、抽出した全要求を実行します。
func (p *Pipeline) ProcessGuide(ctx context.Context, content, outputDir string, useOverlay bool) (*domain.PipelineResult, error) {
	requests := guide.Parse(content)
	if len(requests) == 0 {
		return nil, fmt.Errorf("ガイド文書から画像セクションが見つかりません")
	}
	return p.Run(ctx, requests, outputDir, useOverlay)
}

// Run は要求のバッチを並列実行します。個々の失敗は結果に記録するだけで、
// 他の要求の処理は続行します。Results は投入順を保ちます。
func (p *Pipeline) Run(ctx context.Context, requests []domain.ImageRequest, outputDir string, useOverlay bool) (*domain.PipelineResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	start := time.Now()
	slog.Info("画像生成パイプラインを開始します",
		"requests", len(requests), "output_dir", outputDir, "overlay", useOverlay)

	results := make([]domain.ImageResult, len(requests))
	sem := semaphore.NewWeighted(p.concurrency)
	var wg sync.WaitGroup

	for i, req := range requests {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = domain.ImageResult{Request: req, Err: err.Error()}
			continue
		}

		wg.Add(1)
		go func(idx int, req domain.ImageRequest) {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = p.processOne(ctx, req, outputDir, useOverlay)
		}(i, req)
	}
	wg.Wait()

	result := &domain.PipelineResult{
		Total:   len(requests),
		Results: results,
		Elapsed: time.Since(start),
	}
	for _, r := range results {
		if r.Overlaid {
			result.OverlayCount++
		}
	}

	slog.Info("画像生成パイプラインが完了しました",
		"success", result.SuccessCount(), "failed", result.FailedCount(),
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// processOne は単一要求の生成・テキスト合成・保存を行います。
func (p *Pipeline) processOne(ctx context.Context, req domain.ImageRequest, outputDir string, useOverlay bool) domain.ImageResult {
	start := time.Now()
	result := domain.ImageResult{Request: req}

	// テキストを後から合成する場合は、モデル側で文字が描かれないよう
	// 背景専用プロンプトへ変換する
	compositing := useOverlay && req.Overlay != nil && p.overlayProc != nil
	promptText := req.Prompt
	if compositing {
		promptText = prompt.ForBackground(req.Prompt)
	}

	data, err := p.generate(ctx, req, promptText)
	if err != nil {
		result.Err = err.Error()
		result.Elapsed = time.Since(start)
		slog.Error("画像生成に失敗しました", "index", req.Index, "role", req.Role, "error", err)
		return result
	}
	result.ModelUsed = data.Model

	imgBytes, err := imgutil.NormalizeToPNG(data.Data)
	if err != nil {
		result.Err = fmt.Sprintf("生成画像のデコードに失敗しました: %v", err)
		result.Elapsed = time.Since(start)
		return result
	}

	if compositing {
		overlaid, err := p.overlayProc.Apply(imgBytes, *req.Overlay)
		if err != nil {
			// 合成失敗は致命ではない。元画像をそのまま保存する
			slog.Warn("テキスト合成に失敗したため元画像を保存します", "index", req.Index, "error", err)
		} else {
			imgBytes = overlaid
			result.Overlaid = true
		}
	}

	path := filepath.Join(outputDir, req.Filename)
	if err := os.WriteFile(path, imgBytes, 0o644); err != nil {
		result.Err = fmt.Sprintf("画像の保存に失敗しました: %v", err)
		result.Elapsed = time.Since(start)
		return result
	}

	result.FilePath = path
	result.Elapsed = time.Since(start)
	slog.Info("画像を保存しました", "path", path, "model", result.ModelUsed, "overlaid", result.Overlaid)
	return result
}

// generate はバックエンドを順に試します。各バックエンドは1要求につき
// 最大1回だけ選ばれ、フォールバック対象外のエラーは即時失敗になります。
func (p *Pipeline) generate(ctx context.Context, req domain.ImageRequest, promptText string) (*domain.ImageData, error) {
	startIdx := 0
	if p.fallbackActive.Load() && len(p.backends) > 1 {
		startIdx = 1
	}

	var lastErr error
	for idx := startIdx; idx < len(p.backends); idx++ {
		backend := p.backends[idx]
		data, err := p.tryBackend(ctx, backend, promptText, req.AspectRatio)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if generator.IsQuotaExhausted(err) && len(p.backends) > 1 && !p.fallbackActive.Swap(true) {
			slog.Warn("クォータ枯渇を検知しました。バッチの残りはフォールバックモデルへ切り替えます",
				"from", backend.Name())
		}

		if !generator.IsFallbackEligible(err) {
			return nil, err
		}
		if idx+1 < len(p.backends) {
			slog.Warn("フォールバックモデルで再試行します",
				"index", req.Index, "from", backend.Name(), "to", p.backends[idx+1].Name(), "error", err)
		}
	}

	return nil, fmt.Errorf("すべてのバックエンドで生成に失敗しました: %w", lastErr)
}

// tryBackend は1つのバックエンドをタイムアウトとリトライ付きで実行します。
// レート制限は呼び出しのたびに消費します。
func (p *Pipeline) tryBackend(ctx context.Context, backend generator.ImageBackend, promptText, aspectRatio string) (*domain.ImageData, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var data *domain.ImageData
	err := retry.Do(
		func() error {
			if err := p.limiter.Wait(callCtx); err != nil {
				return err
			}
			d, err := backend.Generate(callCtx, promptText, aspectRatio)
			if err != nil {
				return err
			}
			data = d
			return nil
		},
		retry.RetryIf(generator.IsRetryable),
		retry.Attempts(p.retryCount),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(callCtx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("画像生成をリトライします",
				"model", backend.Name(), "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}
