package domain

import (
	"fmt"
	"time"
)

// ImageResult は単一の画像生成要求の最終結果です。
type ImageResult struct {
	Request   ImageRequest
	FilePath  string
	ModelUsed string
	Overlaid  bool
	Err       string // 失敗理由。成功時は空文字列
	Elapsed   time.Duration
}

// Success は要求が成功として記録されたかを返します。
func (r ImageResult) Success() bool {
	return r.Err == ""
}

func (r ImageResult) String() string {
	if r.Success() {
		return fmt.Sprintf("✅ %s (%s)", r.FilePath, r.ModelUsed)
	}
	return fmt.Sprintf("❌ %s: %s", r.Request.Filename, r.Err)
}

// PipelineResult はバッチ実行全体の集計結果です。
// Results は投入順のまま保持され、Succeeded / Failed はその部分列です。
type PipelineResult struct {
	Total        int
	Results      []ImageResult
	OverlayCount int
	Elapsed      time.Duration
}

// Succeeded は成功した結果を投入順で返します。
func (p *PipelineResult) Succeeded() []ImageResult {
	out := make([]ImageResult, 0, len(p.Results))
	for _, r := range p.Results {
		if r.Success() {
			out = append(out, r)
		}
	}
	return out
}

// Failed は失敗した結果を投入順で返します。
func (p *PipelineResult) Failed() []ImageResult {
	out := make([]ImageResult, 0)
	for _, r := range p.Results {
		if !r.Success() {
			out = append(out, r)
		}
	}
	return out
}

// SuccessCount は成功件数を返します。
func (p *PipelineResult) SuccessCount() int {
	return len(p.Succeeded())
}

// FailedCount は失敗件数を返します。
func (p *PipelineResult) FailedCount() int {
	return len(p.Failed())
}

// SuccessRate は成功率（%）を返します。要求が0件の場合は0を返します。
func (p *PipelineResult) SuccessRate() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.SuccessCount()) / float64(p.Total) * 100
}

// Summary はログや完了レポート向けの一行サマリを生成します。
func (p *PipelineResult) Summary() string {
	return fmt.Sprintf("📊 パイプライン結果: %d/%d 成功 (テキスト合成 %d件), 所要時間: %.1fs",
		p.SuccessCount(), p.Total, p.OverlayCount, p.Elapsed.Seconds())
}
