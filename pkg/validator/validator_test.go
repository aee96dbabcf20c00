package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shouni/naver-blog-kit/pkg/config"
)

func TestCountContentChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"タグとプレースホルダーを除外する", "<p>Hello</p>[이미지 1 삽입]", 5},
		{"説明付きプレースホルダーも除外する", "<p>본문</p>[이미지 2 삽입 - 금리 차트]", 2},
		{"styleブロックの中身は数えない", "<style>.a { color: red; }</style><p>가나다</p>", 3},
		{"改行は空白1つとして数える", "<p>가나</p>\n\n<p>다라</p>", 5},
		{"連続空白は1つにまとめる", "가나   다라", 5},
		{"空文字列は0", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountContentChars(tt.in); got != tt.want {
				t.Errorf("CountContentChars(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	t.Run("壊れたマークアップでもパニックしない", func(t *testing.T) {
		got := CountContentChars("<p>본문<div><<broken<span>텍스트")
		if got <= 0 {
			t.Errorf("ベストエフォートで正の文字数を返すべき: %d", got)
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := config.WritingConfig{CharCount: 1850, CharTolerance: 50, MinChars: 1800, MaxChars: 1900}

	t.Run("範囲内はvalidになるのだ", func(t *testing.T) {
		content := "<p>" + strings.Repeat("가", 1850) + "</p>"
		result := Validate(content, cfg)

		assert.True(t, result.IsValid)
		assert.Equal(t, StatusOK, result.Status)
		assert.Equal(t, 1850, result.CharCount)
		assert.Equal(t, 0, result.Difference)
	})

	t.Run("境界値はどちらも有効（min/max ちょうど）", func(t *testing.T) {
		lower := Validate(strings.Repeat("가", 1800), cfg)
		upper := Validate(strings.Repeat("가", 1900), cfg)

		assert.True(t, lower.IsValid, "下限ちょうどは有効")
		assert.True(t, upper.IsValid, "上限ちょうどは有効")
	})

	t.Run("不足時は under と差分を報告する", func(t *testing.T) {
		result := Validate(strings.Repeat("가", 1700), cfg)

		assert.False(t, result.IsValid)
		assert.Equal(t, StatusUnder, result.Status)
		assert.Equal(t, -150, result.Difference)
		assert.Contains(t, result.Message, "100")
	})

	t.Run("超過時は over になる", func(t *testing.T) {
		result := Validate(strings.Repeat("가", 1950), cfg)

		assert.False(t, result.IsValid)
		assert.Equal(t, StatusOver, result.Status)
	})

	t.Run("min/max未設定なら目標±許容誤差から導出する", func(t *testing.T) {
		result := Validate("<p>Hello</p>[이미지 1 삽입]", config.WritingConfig{CharCount: 5, CharTolerance: 2})

		assert.Equal(t, 5, result.CharCount)
		assert.True(t, result.IsValid)
		assert.Equal(t, 3, result.MinChars)
		assert.Equal(t, 7, result.MaxChars)
	})
}

func TestSectionBreakdown(t *testing.T) {
	t.Run("h2/h3ごとに分割されるのだ", func(t *testing.T) {
		content := `<h2>핵심 정보</h2><p>가나다라마</p><h3>실전 팁</h3><p>바사아</p>`

		sections := SectionBreakdown(content)

		assert.Len(t, sections, 2)
		assert.Equal(t, "핵심 정보", sections[0].Title)
		assert.Equal(t, 5, sections[0].CharCount)
		assert.Equal(t, "실전 팁", sections[1].Title)
		assert.Equal(t, 3, sections[1].CharCount)
	})

	t.Run("見出しが無い場合は全体を1セクションにする", func(t *testing.T) {
		sections := SectionBreakdown("<p>본문만 있는 글</p>")

		assert.Len(t, sections, 1)
		assert.Equal(t, "전체", sections[0].Title)
	})
}

func TestSuggestAdjustment(t *testing.T) {
	t.Run("有効な結果には調整不要と返す", func(t *testing.T) {
		got := SuggestAdjustment(Result{IsValid: true})
		assert.Contains(t, got, "不要")
	})

	t.Run("不足時は必要字数を含む提案を返す", func(t *testing.T) {
		got := SuggestAdjustment(Result{Status: StatusUnder, CharCount: 1700, MinChars: 1800})
		assert.Contains(t, got, "100")
	})

	t.Run("超過時は削減字数を含む提案を返す", func(t *testing.T) {
		got := SuggestAdjustment(Result{Status: StatusOver, CharCount: 1950, MaxChars: 1900})
		assert.Contains(t, got, "50")
	})
}
