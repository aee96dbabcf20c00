package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shouni/naver-blog-kit/pkg/config"
)

// メタデータファイル名。プロジェクトディレクトリ直下の隠しファイルです。
const metadataFilename = ".metadata.json"

// Metadata はプロジェクト1件の進行状態の永続化形式です。
type Metadata struct {
	Topic     string         `json:"topic"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
	Status    string         `json:"status"`
	Config    MetadataConfig `json:"config"`
	// 産出ファイルのパス。キーは html / image_guide / references
	Files   map[string]string `json:"files"`
	Images  []string          `json:"images"`
	Sources []string          `json:"sources"`
}

// MetadataConfig は作成時点の主要設定のスナップショットです。
type MetadataConfig struct {
	CharCount  int `json:"char_count"`
	ImageCount int `json:"image_count"`
	TagCount   int `json:"tag_count"`
}

// ProjectInfo は一覧表示向けのプロジェクト情報です。
type ProjectInfo struct {
	Path     string
	Date     string
	Topic    string
	Metadata *Metadata // メタデータが無い場合は nil
}

// MetadataPath はこのプロジェクトのメタデータファイルのパスを返します。
func (c *Context) MetadataPath() string {
	return filepath.Join(c.ProjectDir, metadataFilename)
}

// newMetadata は作成直後のメタデータを組み立てます。
func newMetadata(topic string, cfg *config.Config) *Metadata {
	return &Metadata{
		Topic:     topic,
		CreatedAt: time.Now(),
		Status:    "initialized",
		Config: MetadataConfig{
			CharCount:  cfg.Writing.CharCount,
			ImageCount: cfg.Images.DefaultCount,
			TagCount:   cfg.Tags.Count,
		},
		Files:   map[string]string{},
		Images:  []string{},
		Sources: []string{},
	}
}

// saveMetadata はメタデータをプロジェクトディレクトリへ書き込みます。
func saveMetadata(projectDir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}

	path := filepath.Join(projectDir, metadataFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("メタデータの保存に失敗しました: %w", err)
	}
	return nil
}

// LoadMetadata はプロジェクトのメタデータを読み込みます。
// ファイルが存在しない場合は nil を返します（エラーにはなりません）。
func LoadMetadata(projectDir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, metadataFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("メタデータの読み込みに失敗しました: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("メタデータの解析に失敗しました: %w", err)
	}
	return &meta, nil
}

// UpdateMetadata はメタデータを読み込み、apply による変更を加えて保存します。
// ファイルが無い場合は空のメタデータから始めます。UpdatedAt は自動更新されます。
func UpdateMetadata(projectDir string, apply func(*Metadata)) (*Metadata, error) {
	meta, err := LoadMetadata(projectDir)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &Metadata{Files: map[string]string{}}
	}
	if meta.Files == nil {
		meta.Files = map[string]string{}
	}

	apply(meta)
	meta.UpdatedAt = time.Now()

	if err := saveMetadata(projectDir, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// FindExistingProject は同一トピック・同一日付の既存プロジェクトを探します。
// 見つからない場合は空文字列と false を返します。
func (r *Runner) FindExistingProject(topic string) (string, bool) {
	if topic == "" {
		return "", false
	}
	projectDir := r.projectPath(topic)
	if info, err := os.Stat(projectDir); err == nil && info.IsDir() {
		return projectDir, true
	}
	return "", false
}

// ListProjects は基準ディレクトリ配下のプロジェクト一覧を返します。
// date を指定するとその日付のみ、空なら全日付を新しい順に走査します。
func (r *Runner) ListProjects(date string) ([]ProjectInfo, error) {
	baseDir := r.cfg.Output.BaseDir

	var dateDirs []string
	if date != "" {
		candidate := filepath.Join(baseDir, date)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			dateDirs = append(dateDirs, date)
		}
	} else {
		entries, err := os.ReadDir(baseDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				dateDirs = append(dateDirs, e.Name())
			}
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dateDirs)))
	}

	var projects []ProjectInfo
	for _, d := range dateDirs {
		entries, err := os.ReadDir(filepath.Join(baseDir, d))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(baseDir, d, e.Name())
			meta, err := LoadMetadata(path)
			if err != nil {
				return nil, err
			}
			projects = append(projects, ProjectInfo{
				Path:     path,
				Date:     d,
				Topic:    e.Name(),
				Metadata: meta,
			})
		}
	}
	return projects, nil
}
