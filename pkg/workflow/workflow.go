// Package workflow はブログ記事作成の8段階を明示的なステージ列として
// 管理します。各ステージは入力・出力データ名を宣言し、順序どおりにしか
// 進められません。
package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/naver-blog-kit/pkg/config"
	"github.com/shouni/naver-blog-kit/pkg/utils"
)

// Stage はワークフローの段階を表します。
type Stage int

const (
	StageTopicSelection Stage = iota + 1 // 주제 선정
	StageResearch                        // 자료 조사
	StageOutline                         // 개요 작성
	StageDrafting                        // 본문 작성
	StageValidation                      // 분량 검증
	StageImageGuide                      // 이미지 가이드
	StageImageGeneration                 // 이미지 생성
	StagePublishPrep                     // 발행 준비
)

// StageInfo はステージ1つの入出力データ契約です。
// Entry のデータがすべて揃っていないと着手できず、Exit のデータを
// すべて登録しないと完了できません。
type StageInfo struct {
	Stage Stage
	Name  string   // 表示名（韓国語）
	Entry []string // 着手に必要なデータ名
	Exit  []string // 完了時に産出されるデータ名
}

var stageTable = []StageInfo{
	{StageTopicSelection, "주제 선정", nil, []string{"topic_brief", "target_keywords"}},
	{StageResearch, "자료 조사", []string{"topic_brief", "target_keywords"}, []string{"research_notes", "reference_images"}},
	{StageOutline, "개요 작성", []string{"research_notes"}, []string{"outline"}},
	{StageDrafting, "본문 작성", []string{"outline"}, []string{"draft"}},
	{StageValidation, "분량 검증", []string{"draft"}, []string{"validated_draft"}},
	{StageImageGuide, "이미지 가이드", []string{"validated_draft"}, []string{"image_guide"}},
	{StageImageGeneration, "이미지 생성", []string{"image_guide"}, []string{"generated_images"}},
	{StagePublishPrep, "발행 준비", []string{"validated_draft", "generated_images"}, []string{"final_post", "tags"}},
}

// Stages は全ステージの契約を順序どおり返します。
func Stages() []StageInfo {
	out := make([]StageInfo, len(stageTable))
	copy(out, stageTable)
	return out
}

// Info は該当ステージの契約を返します。未知のステージはゼロ値です。
func (s Stage) Info() StageInfo {
	for _, info := range stageTable {
		if info.Stage == s {
			return info
		}
	}
	return StageInfo{}
}

func (s Stage) String() string {
	info := s.Info()
	if info.Name == "" {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return fmt.Sprintf("%d단계: %s", int(s), info.Name)
}

// Context は進行中のプロジェクト1件の状態を保持します。
// グローバル変数を持たず、ステージ間のデータはここへ集約されます。
type Context struct {
	Topic      string
	Date       string
	ProjectDir string

	current   Stage
	artifacts map[string]string
}

// ImagesDir は生成・収集画像の保存先ディレクトリです。
func (c *Context) ImagesDir() string { return filepath.Join(c.ProjectDir, "images") }

// PostsDir は原稿の保存先ディレクトリです。
func (c *Context) PostsDir() string { return filepath.Join(c.ProjectDir, "posts") }

// Current は現在着手可能なステージを返します。
func (c *Context) Current() Stage { return c.current }

// Artifact は登録済みのデータを取得します。
func (c *Context) Artifact(name string) (string, bool) {
	v, ok := c.artifacts[name]
	return v, ok
}

// CanEnter はステージに着手できるかを検査します。
// 未知のステージ、順序違反、必要な入力データの欠落はエラーになります。
func (c *Context) CanEnter(stage Stage) error {
	if stage.Info().Stage == 0 {
		return fmt.Errorf("未知のステージです: %d", int(stage))
	}
	if stage != c.current {
		return fmt.Errorf("ステージ順序違反です: 現在は %s、要求は %s", c.current, stage)
	}
	for _, name := range stage.Info().Entry {
		if _, ok := c.artifacts[name]; !ok {
			return fmt.Errorf("%s に必要なデータ %q が未登録です", stage, name)
		}
	}
	return nil
}

// Complete はステージの完了を記録し、次のステージへ進めます。
// outputs にはそのステージの Exit データをすべて含める必要があります。
func (c *Context) Complete(stage Stage, outputs map[string]string) error {
	if err := c.CanEnter(stage); err != nil {
		return err
	}
	for _, name := range stage.Info().Exit {
		if _, ok := outputs[name]; !ok {
			return fmt.Errorf("%s の出力データ %q がありません", stage, name)
		}
	}
	for name, value := range outputs {
		c.artifacts[name] = value
	}

	c.current++
	slog.Info("ステージが完了しました", "stage", stage.String(), "next", c.current.String())
	return nil
}

// Done はすべてのステージが完了したかを返します。
func (c *Context) Done() bool {
	return c.current > StagePublishPrep
}

// Runner はプロジェクトの立ち上げとリサーチ計画を担います。
type Runner struct {
	cfg *config.Config
}

// NewRunner は Runner を初期化します。
func NewRunner(cfg *config.Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("設定がnilです")
	}
	return &Runner{cfg: cfg}, nil
}

// projectPath は今日の日付でのプロジェクトディレクトリを組み立てます。
func (r *Runner) projectPath(topic string) string {
	date := utils.TodayDate(r.cfg.Output.DateFormat)
	return utils.CreateOutputPath(r.cfg.Output.BaseDir, topic, date)
}

// Setup はトピックのプロジェクトディレクトリ（images/, posts/）と
// メタデータを作成し、最初のステージに位置付けた Context を返します。
// 同一トピックの既存プロジェクトがある場合は、新規作成せずそれを再利用します。
func (r *Runner) Setup(topic string) (*Context, error) {
	if topic == "" {
		return nil, fmt.Errorf("トピックが空です")
	}

	projectDir, existing := r.FindExistingProject(topic)
	if !existing {
		projectDir = r.projectPath(topic)
	}

	c := &Context{
		Topic:      topic,
		Date:       utils.TodayDate(r.cfg.Output.DateFormat),
		ProjectDir: projectDir,
		current:    StageTopicSelection,
		artifacts:  make(map[string]string),
	}

	for _, dir := range []string{c.ImagesDir(), c.PostsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("プロジェクトディレクトリの作成に失敗しました: %w", err)
		}
	}

	meta, err := LoadMetadata(projectDir)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if err := saveMetadata(projectDir, newMetadata(topic, r.cfg)); err != nil {
			return nil, err
		}
	}

	if existing {
		slog.Info("既存プロジェクトを再利用します", "topic", topic, "dir", projectDir)
	} else {
		slog.Info("プロジェクトを作成しました", "topic", topic, "dir", projectDir)
	}
	return c, nil
}

// researchAngles はリサーチ段階で並列に走る調査観点の優先順です。
var researchAngles = []string{
	"최신 뉴스·정책 동향",
	"경쟁 블로그·상위 노출 글 분석",
	"공식 자료·통계 데이터",
	"커뮤니티 반응·실사용 후기",
	"전문가 해설·심층 분석",
	"연관 키워드·검색 트렌드",
}

// ResearchAngles は設定されたファンアウト数だけ調査観点を返します。
// 観点の種類を超える指定は先頭から循環します。
func (r *Runner) ResearchAngles() []string {
	n := r.cfg.Workflow.ResearchFanOut
	if n <= 0 {
		n = 3
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = researchAngles[i%len(researchAngles)]
	}
	return out
}
