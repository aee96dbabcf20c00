package workflow

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Metadata(t *testing.T) {
	r := testRunner(t)

	t.Run("作成時に .metadata.json が書き込まれるのだ", func(t *testing.T) {
		c, err := r.Setup("ISA 계좌 가이드")
		require.NoError(t, err)

		_, statErr := os.Stat(c.MetadataPath())
		require.NoError(t, statErr)

		meta, err := LoadMetadata(c.ProjectDir)
		require.NoError(t, err)
		require.NotNil(t, meta)
		assert.Equal(t, "ISA 계좌 가이드", meta.Topic)
		assert.Equal(t, "initialized", meta.Status)
		assert.Equal(t, 1850, meta.Config.CharCount)
		assert.False(t, meta.CreatedAt.IsZero())
	})
}

func TestSetup_ReusesExistingProject(t *testing.T) {
	r := testRunner(t)

	first, err := r.Setup("연금저축 비교")
	require.NoError(t, err)

	// 進行状態を記録しておく
	_, err = UpdateMetadata(first.ProjectDir, func(m *Metadata) {
		m.Status = "drafting"
	})
	require.NoError(t, err)

	// 同一トピックでの再セットアップは同じディレクトリを再利用し、
	// 既存メタデータを上書きしない
	second, err := r.Setup("연금저축 비교")
	require.NoError(t, err)
	assert.Equal(t, first.ProjectDir, second.ProjectDir)

	meta, err := LoadMetadata(second.ProjectDir)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "drafting", meta.Status)
}

func TestLoadMetadata(t *testing.T) {
	t.Run("ファイルが無い場合は nil を返すのだ", func(t *testing.T) {
		meta, err := LoadMetadata(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, meta)
	})

	t.Run("壊れたJSONはエラーを返す", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(dir+"/"+metadataFilename, []byte("{broken"), 0o644))

		_, err := LoadMetadata(dir)
		assert.Error(t, err)
	})
}

func TestUpdateMetadata(t *testing.T) {
	t.Run("変更が永続化され UpdatedAt が付くのだ", func(t *testing.T) {
		dir := t.TempDir()

		meta, err := UpdateMetadata(dir, func(m *Metadata) {
			m.Topic = "금리 전망"
			m.Files["html"] = "posts/draft.html"
			m.Images = append(m.Images, "01_썸네일.png")
		})
		require.NoError(t, err)
		assert.False(t, meta.UpdatedAt.IsZero())

		loaded, err := LoadMetadata(dir)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "금리 전망", loaded.Topic)
		assert.Equal(t, "posts/draft.html", loaded.Files["html"])
		assert.Equal(t, []string{"01_썸네일.png"}, loaded.Images)
	})
}

func TestRunner_FindExistingProject(t *testing.T) {
	r := testRunner(t)

	t.Run("存在しないトピックは false", func(t *testing.T) {
		_, found := r.FindExistingProject("없는 주제")
		assert.False(t, found)
	})

	t.Run("Setup 済みのトピックは発見できるのだ", func(t *testing.T) {
		c, err := r.Setup("주식 초보 가이드")
		require.NoError(t, err)

		path, found := r.FindExistingProject("주식 초보 가이드")
		assert.True(t, found)
		assert.Equal(t, c.ProjectDir, path)
	})
}

func TestRunner_ListProjects(t *testing.T) {
	r := testRunner(t)

	t.Run("基準ディレクトリが無い場合は空", func(t *testing.T) {
		projects, err := r.ListProjects("")
		require.NoError(t, err)
		assert.Empty(t, projects)
	})

	t.Run("メタデータ込みで一覧できるのだ", func(t *testing.T) {
		first, err := r.Setup("ISA 계좌")
		require.NoError(t, err)
		_, err = r.Setup("연금저축")
		require.NoError(t, err)

		projects, err := r.ListProjects("")
		require.NoError(t, err)
		require.Len(t, projects, 2)

		for _, p := range projects {
			assert.Equal(t, first.Date, p.Date)
			require.NotNil(t, p.Metadata, "Setup 済みプロジェクトはメタデータを持つ")
		}

		// 日付指定でも同じ結果になる
		byDate, err := r.ListProjects(first.Date)
		require.NoError(t, err)
		assert.Len(t, byDate, 2)
	})
}
