package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouni/naver-blog-kit/pkg/domain"
)

// mockBackend は generator.ImageBackend のテスト用実装です。
// 呼び出し回数をスレッドセーフに記録します。
type mockBackend struct {
	name         string
	generateFunc func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error)

	mu    sync.Mutex
	calls int
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Generate(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.generateFunc(ctx, prompt, aspectRatio)
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// countingWaiter はレート制限の消費回数だけを数えるテスト用の待機器です。
type countingWaiter struct {
	mu    sync.Mutex
	waits int
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.mu.Lock()
	w.waits++
	w.mu.Unlock()
	return ctx.Err()
}

func (w *countingWaiter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waits
}

// tinyPNG はデコード可能な極小PNGを返します。
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{0, 0, 128, 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// okBackend は常に成功するバックエンドを返します。
func okBackend(t *testing.T, name string) *mockBackend {
	data := tinyPNG(t)
	return &mockBackend{
		name: name,
		generateFunc: func(ctx context.Context, prompt, aspectRatio string) (*domain.ImageData, error) {
			return &domain.ImageData{Data: data, MimeType: "image/png", Model: name}, nil
		},
	}
}
