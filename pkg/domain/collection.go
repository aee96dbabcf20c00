package domain

import "fmt"

// ImageInfo は収集対象（参照画像）1件の情報と取得結果です。
type ImageInfo struct {
	URL         string `json:"url"`
	SourceURL   string `json:"source_url"`
	Description string `json:"description"`
	LocalPath   string `json:"local_path"`
	Success     bool   `json:"success"`
	Err         string `json:"error,omitempty"`
}

// CollectionResult は参照画像収集の集計結果です。
type CollectionResult struct {
	Total     int         `json:"total"`
	Images    []ImageInfo `json:"images"`
	OutputDir string      `json:"output_dir"`
}

// SuccessCount はダウンロードに成功した件数を返します。
func (c *CollectionResult) SuccessCount() int {
	n := 0
	for _, img := range c.Images {
		if img.Success {
			n++
		}
	}
	return n
}

// SuccessRate は成功率（%）を返します。
func (c *CollectionResult) SuccessRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.SuccessCount()) / float64(c.Total) * 100
}

func (c *CollectionResult) Summary() string {
	return fmt.Sprintf("📥 画像収集: %d/%d 成功 (%.1f%%) → %s",
		c.SuccessCount(), c.Total, c.SuccessRate(), c.OutputDir)
}
