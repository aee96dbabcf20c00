package domain

// OverlayText は生成画像の上に載せるテキストの配置指定です。
// ガイド文書の key: value 行から抽出され、抽出後は変更されません。
type OverlayText struct {
	MainText      string `json:"main_text"`
	SubText       string `json:"sub_text"`
	Position      string `json:"position"`  // center / top / bottom
	FontSize      int    `json:"font_size"` // px 単位
	FontColor     string `json:"font_color"`
	Shadow        bool   `json:"shadow"`
	ShadowColor   string `json:"shadow_color"`
	BackgroundBox bool   `json:"background_box"`
	BoxColor      string `json:"background_box_color"`
	BoxPadding    int    `json:"background_box_padding"`
}

// ImageRequest はガイド文書から抽出された単一の画像生成要求です。
// Overlay が nil の場合はテキスト合成なしの通常生成になります。
type ImageRequest struct {
	Index       int          `json:"index"`
	Role        string       `json:"role"` // 썸네일・인포그래픽 などの用途ラベル
	Prompt      string       `json:"prompt"`
	Filename    string       `json:"filename"`
	AspectRatio string       `json:"aspect_ratio"`
	Overlay     *OverlayText `json:"overlay,omitempty"`
}

// ImageData はバックエンドが生成した画像データとそのメタデータです。
type ImageData struct {
	Data     []byte
	MimeType string
	Model    string // 実際に生成へ使われたモデル名
}
