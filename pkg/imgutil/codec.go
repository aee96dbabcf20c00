package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
)

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
// image.Decodeがサポートするフォーマットに対応しています。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePNG は image.Image をPNGバイト列にエンコードします。
// パイプラインの最終出力は常にPNGに揃えるための補助です。
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NormalizeToPNG は任意フォーマットの画像バイト列をPNGへ変換します。
// すでにデコード不能なデータはエラーを返します。
func NormalizeToPNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == "png" {
		return data, nil
	}
	return EncodePNG(img)
}
