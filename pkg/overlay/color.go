package overlay

import (
	"fmt"
	"image/color"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var rgbaPattern = regexp.MustCompile(`(?i)^rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*([0-9.]+)\s*)?\)$`)

// ParseColor は "#RRGGBB" / "#RGB" / "rgba(r,g,b,a)" 形式の色指定を解釈します。
// rgba のアルファは 0〜1 の小数です。
func ParseColor(value string) (color.NRGBA, error) {
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "#") {
		return parseHexColor(value)
	}

	if m := rgbaPattern.FindStringSubmatch(value); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		alpha := 255
		if m[4] != "" {
			if a, err := strconv.ParseFloat(m[4], 64); err == nil {
				alpha = int(a * 255)
			}
		}
		return color.NRGBA{clampByte(r), clampByte(g), clampByte(b), clampByte(alpha)}, nil
	}

	return color.NRGBA{}, fmt.Errorf("解釈できない色指定です: %q", value)
}

func parseHexColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(value, "#")

	switch len(hex) {
	case 3:
		// #RGB → #RRGGBB に展開
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("解釈できない色指定です: %q", value)
	}

	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("解釈できない色指定です: %q", value)
	}

	return color.NRGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 255,
	}, nil
}

// parseColorOr は解釈に失敗した場合、警告を出してデフォルト色を返します。
func parseColorOr(value string, fallback color.NRGBA) color.NRGBA {
	if value == "" {
		return fallback
	}
	col, err := ParseColor(value)
	if err != nil {
		slog.Warn("色指定を解釈できないためデフォルト色を使用します", "value", value)
		return fallback
	}
	return col
}

func clampByte(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}
