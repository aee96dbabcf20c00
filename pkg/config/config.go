package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Config はキット全体の設定を保持します。config.yaml から読み込み、
// 欠けている項目はデフォルト値で補います。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Writing  WritingConfig  `yaml:"writing"`
	Images   ImagesConfig   `yaml:"images"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Tags     TagsConfig     `yaml:"tags"`
	Output   OutputConfig   `yaml:"output"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// WritingConfig は本文文字数の目標と許容範囲です。
type WritingConfig struct {
	CharCount     int `yaml:"char_count"`     // 目標文字数
	CharTolerance int `yaml:"char_tolerance"` // 許容誤差（±）
	MinChars      int `yaml:"min_chars"`
	MaxChars      int `yaml:"max_chars"`
}

// ImagesConfig は画像枚数とダウンロード関連の設定です。
type ImagesConfig struct {
	DefaultCount    int    `yaml:"default_count"`
	MinCount        int    `yaml:"min_count"`
	MaxCount        int    `yaml:"max_count"`
	DownloadTimeout int    `yaml:"download_timeout"` // 秒
	UserAgent       string `yaml:"user_agent"`
}

// GeminiConfig は画像生成バックエンドの設定です。
type GeminiConfig struct {
	Models          GeminiModels `yaml:"models"`
	Timeout         int          `yaml:"timeout"`            // 1リクエストの秒数上限
	RetryCount      int          `yaml:"retry_count"`        // バックエンド1回あたりの再試行回数
	RateLimitPerMin int          `yaml:"rate_limit_per_min"` // 外部API呼び出しの毎分上限
	Concurrency     int          `yaml:"concurrency"`        // バッチの同時実行数
}

type GeminiModels struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
}

type TagsConfig struct {
	Count    int `yaml:"count"`
	MaxCount int `yaml:"max_count"`
}

type OutputConfig struct {
	BaseDir    string `yaml:"base_dir"`
	DateFormat string `yaml:"date_format"`
}

// WorkflowConfig はワークフロー実行の調整項目です。
// ResearchFanOut はリサーチ段階の並列エージェント数で、固定値ではなく設定です。
type WorkflowConfig struct {
	ResearchFanOut int `yaml:"research_fan_out"`
}

// Default は原典のデフォルト値一式を返します。
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "naver-blog-kit", Version: "2.0.0"},
		Writing: WritingConfig{
			CharCount:     1850,
			CharTolerance: 50,
			MinChars:      1800,
			MaxChars:      1900,
		},
		Images: ImagesConfig{
			DefaultCount:    5,
			MinCount:        3,
			MaxCount:        10,
			DownloadTimeout: 30,
			UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
		Gemini: GeminiConfig{
			Models: GeminiModels{
				Primary:  "gemini-2.5-flash-image",
				Fallback: "imagen-3.0-generate-002",
			},
			Timeout:         60,
			RetryCount:      3,
			RateLimitPerMin: 10,
			Concurrency:     2,
		},
		Tags: TagsConfig{Count: 8, MaxCount: 10},
		Output: OutputConfig{
			BaseDir:    "./경제 블로그",
			DateFormat: "2006-01-02",
		},
		Workflow: WorkflowConfig{ResearchFanOut: 3},
	}
}

// FindConfigFile はカレントディレクトリから最大5階層上まで config.yaml を探します。
// 見つからない場合は空文字列を返します。
func FindConfigFile(startDir string) string {
	if startDir == "" {
		startDir, _ = os.Getwd()
	}

	current, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for i := 0; i < 5; i++ {
		candidate := filepath.Join(current, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return ""
}

// Load は設定ファイルを読み込みます。path が空の場合は自動探索し、
// 見つからなければデフォルト値をそのまま返します。
// ユーザー設定はデフォルトの上に重ねられ、環境変数が最後に適用されます。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = FindConfigFile("")
	}

	if path == "" {
		slog.Warn("config.yaml が見つからないためデフォルト値を使用します")
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	// デフォルト値を持つ cfg の上に展開することで deep merge 相当になる
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides は環境変数による上書きを適用します。
// 対応: BLOG_CHAR_COUNT / BLOG_IMAGE_COUNT / BLOG_OUTPUT_DIR / BLOG_TAG_COUNT
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLOG_CHAR_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Writing.CharCount = n
		}
	}
	if v := os.Getenv("BLOG_IMAGE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Images.DefaultCount = n
		}
	}
	if v := os.Getenv("BLOG_OUTPUT_DIR"); v != "" {
		cfg.Output.BaseDir = v
	}
	if v := os.Getenv("BLOG_TAG_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tags.Count = n
		}
	}
}

// Validate は設定値の整合性を検査し、問題の一覧を返します。
func (c *Config) Validate() []string {
	var errs []string

	if !(c.Writing.MinChars <= c.Writing.CharCount && c.Writing.CharCount <= c.Writing.MaxChars) {
		errs = append(errs, fmt.Sprintf("char_count(%d) が範囲 (%d~%d) の外です",
			c.Writing.CharCount, c.Writing.MinChars, c.Writing.MaxChars))
	}
	if !(c.Images.MinCount <= c.Images.DefaultCount && c.Images.DefaultCount <= c.Images.MaxCount) {
		errs = append(errs, fmt.Sprintf("default_count(%d) が範囲 (%d~%d) の外です",
			c.Images.DefaultCount, c.Images.MinCount, c.Images.MaxCount))
	}
	if c.Gemini.RateLimitPerMin <= 0 {
		errs = append(errs, "rate_limit_per_min は1以上である必要があります")
	}
	if c.Gemini.Concurrency <= 0 {
		errs = append(errs, "concurrency は1以上である必要があります")
	}
	if c.Workflow.ResearchFanOut <= 0 {
		errs = append(errs, "research_fan_out は1以上である必要があります")
	}

	return errs
}

// LoadAPIKey は実行時に環境変数からAPIキーを読み取ります。
// GOOGLE_API_KEY を優先し、無ければ GEMINI_API_KEY を参照します。
func LoadAPIKey() (string, error) {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key, nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("APIキーが設定されていません。環境変数 GOOGLE_API_KEY または GEMINI_API_KEY を設定してください")
}
