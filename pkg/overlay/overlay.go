package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/shouni/naver-blog-kit/pkg/domain"
	"github.com/shouni/naver-blog-kit/pkg/imgutil"
)

// サブテキストはメインに対してこの比率のフォントサイズで描画します。
const subTextScale = 0.6

// 行の折り返しは画像幅のこの比率を上限にします。
const wrapWidthRatio = 0.86

// Processor は生成済みの背景画像へテキストを合成するローカル処理です。
// 外部APIは呼びません。
type Processor struct {
	otFont *opentype.Font // nil の場合は basicfont にフォールバック
}

// NewProcessor は TTF/OTF フォントを読み込んで Processor を初期化します。
// fontPath が空の場合は内蔵の basicfont を使います（ハングルは描画不可のため、
// 本番ではフォント指定を推奨）。
func NewProcessor(fontPath string) (*Processor, error) {
	if fontPath == "" {
		slog.Warn("フォント未指定のため basicfont を使用します。ハングルの描画には TTF の指定が必要です")
		return &Processor{}, nil
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("フォントファイルの読み込みに失敗しました: %w", err)
	}

	otFont, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("フォントの解析に失敗しました: %w", err)
	}

	return &Processor{otFont: otFont}, nil
}

// Apply は背景画像バイト列へテキストを合成し、PNGバイト列を返します。
func (p *Processor) Apply(background []byte, cfg domain.OverlayText) ([]byte, error) {
	if cfg.MainText == "" {
		return nil, fmt.Errorf("main_text が空のため合成できません")
	}

	src, _, err := image.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("背景画像のデコードに失敗しました: %w", err)
	}

	bounds := src.Bounds()
	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, src, bounds.Min, draw.Src)

	width := bounds.Dx()
	height := bounds.Dy()
	ax, ay := anchorPoint(cfg.Position, width, height)
	centerX := bounds.Min.X + ax
	anchorY := bounds.Min.Y + ay
	maxWidth := int(float64(width) * wrapWidthRatio)

	mainFace, err := p.faceFor(cfg.FontSize)
	if err != nil {
		return nil, err
	}
	subFace, err := p.faceFor(int(float64(cfg.FontSize) * subTextScale))
	if err != nil {
		return nil, err
	}

	mainLines := wrapText(mainFace, cfg.MainText, maxWidth)
	var subLines []string
	if cfg.SubText != "" {
		subLines = wrapText(subFace, cfg.SubText, maxWidth)
	}

	block := layoutBlock(mainFace, subFace, mainLines, subLines, centerX, anchorY)

	if cfg.BackgroundBox {
		boxColor := parseColorOr(cfg.BoxColor, color.NRGBA{0, 0, 0, 76})
		pad := cfg.BoxPadding
		if pad == 0 {
			pad = 20
		}
		fillRect(base, block.bounds().Inset(-pad), boxColor)
	}

	textColor := parseColorOr(cfg.FontColor, color.NRGBA{255, 255, 255, 255})
	shadowColor := parseColorOr(cfg.ShadowColor, color.NRGBA{0, 0, 0, 128})

	for _, line := range block.lines {
		if cfg.Shadow {
			drawLine(base, line.face, line.text, line.x+2, line.y+2, shadowColor)
		}
		drawLine(base, line.face, line.text, line.x, line.y, textColor)
	}

	return imgutil.EncodePNG(base)
}

// faceFor は指定サイズのフォントフェイスを返します。
func (p *Processor) faceFor(size int) (font.Face, error) {
	if p.otFont == nil {
		return basicfont.Face7x13, nil
	}
	if size <= 0 {
		size = 48
	}

	face, err := opentype.NewFace(p.otFont, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("フォントフェイスの生成に失敗しました: %w", err)
	}
	return face, nil
}

// anchorPoint は位置キーワードをブロック中心の座標へ変換します。
// center / top / bottom に加え、四隅（top-left 等）を受け付けます。
func anchorPoint(position string, width, height int) (x, y int) {
	switch strings.ToLower(position) {
	case "", "center":
		return width / 2, height / 2
	case "top":
		return width / 2, height / 5
	case "bottom":
		return width / 2, height * 4 / 5
	case "top-left":
		return width / 5, height / 5
	case "top-right":
		return width * 4 / 5, height / 5
	case "bottom-left":
		return width / 5, height * 4 / 5
	case "bottom-right":
		return width * 4 / 5, height * 4 / 5
	default:
		slog.Warn("未知の位置キーワードのため center を使用します", "position", position)
		return width / 2, height / 2
	}
}

// placedLine は配置確定済みの1行です。
type placedLine struct {
	text string
	face font.Face
	x, y int // ベースライン左端
}

type textBlock struct {
	lines []placedLine
}

// bounds はブロック全体を覆う矩形を返します。
func (b *textBlock) bounds() image.Rectangle {
	if len(b.lines) == 0 {
		return image.Rectangle{}
	}
	rect := lineRect(b.lines[0])
	for _, line := range b.lines[1:] {
		rect = rect.Union(lineRect(line))
	}
	return rect
}

func lineRect(line placedLine) image.Rectangle {
	w := font.MeasureString(line.face, line.text).Ceil()
	m := line.face.Metrics()
	return image.Rect(line.x, line.y-m.Ascent.Ceil(), line.x+w, line.y+m.Descent.Ceil())
}

// layoutBlock はメイン・サブの行を中央揃えで縦に並べ、ブロック中心が
// (centerX, anchorY) に来るよう配置します。
func layoutBlock(mainFace, subFace font.Face, mainLines, subLines []string, centerX, anchorY int) *textBlock {
	type pending struct {
		text string
		face font.Face
	}

	var all []pending
	for _, l := range mainLines {
		all = append(all, pending{l, mainFace})
	}
	for _, l := range subLines {
		all = append(all, pending{l, subFace})
	}

	totalHeight := 0
	heights := make([]int, len(all))
	for i, p := range all {
		m := p.face.Metrics()
		h := m.Ascent.Ceil() + m.Descent.Ceil()
		spacing := h / 5
		heights[i] = h + spacing
		totalHeight += heights[i]
	}

	block := &textBlock{}
	y := anchorY - totalHeight/2
	for i, p := range all {
		m := p.face.Metrics()
		baseline := y + m.Ascent.Ceil()
		w := font.MeasureString(p.face, p.text).Ceil()

		block.lines = append(block.lines, placedLine{
			text: p.text,
			face: p.face,
			x:    centerX - w/2,
			y:    baseline,
		})
		y += heights[i]
	}
	return block
}

// wrapText は表示幅を超えないよう、空白区切りでテキストを折り返します。
// 1語で上限を超える場合はその語をそのまま1行にします。
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// drawLine は1行のテキストをベースライン基準で描画します。
func drawLine(dst draw.Image, face font.Face, text string, x, y int, col color.Color) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// fillRect は矩形を合成色で塗りつぶします（アルファ合成）。
func fillRect(dst draw.Image, rect image.Rectangle, col color.Color) {
	draw.Draw(dst, rect.Intersect(dst.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}
