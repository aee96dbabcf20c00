package guide

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// Loader はガイド文書をローカルパス・gs:// URI・HTTP(S) URL から読み込みます。
type Loader struct {
	reader     remoteio.InputReader
	httpClient httpkit.ClientInterface
}

// NewLoader は依存関係を注入して Loader を初期化します。
// reader / httpClient は nil を許容し、その場合は該当スキームが使えません。
func NewLoader(reader remoteio.InputReader, httpClient httpkit.ClientInterface) *Loader {
	return &Loader{
		reader:     reader,
		httpClient: httpClient,
	}
}

// Load は URI の種類に応じた取得経路でガイド文書の中身を返します。
func (l *Loader) Load(ctx context.Context, uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		if l.reader == nil {
			return "", fmt.Errorf("gs:// を読み込むには InputReader が必要です: %s", uri)
		}
		rc, err := l.reader.Open(ctx, uri)
		if err != nil {
			return "", fmt.Errorf("ガイド文書の取得に失敗しました: %w", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("ガイド文書の読み込みに失敗しました: %w", err)
		}
		return string(data), nil

	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if l.httpClient == nil {
			return "", fmt.Errorf("http(s) を読み込むには HTTPクライアントが必要です: %s", uri)
		}
		data, err := l.httpClient.FetchBytes(ctx, uri)
		if err != nil {
			return "", fmt.Errorf("ガイド文書の取得に失敗しました: %w", err)
		}
		return string(data), nil

	default:
		data, err := os.ReadFile(uri)
		if err != nil {
			return "", fmt.Errorf("ガイド文書の読み込みに失敗しました: %w", err)
		}
		return string(data), nil
	}
}
