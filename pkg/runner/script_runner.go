package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// StdinSource は台本を標準入力から読み込むことを示すソース指定です。
const StdinSource = "-"

// ScriptFetcher は URL から台本の本文を取得します。
// httpkit のクライアントがこのインターフェースを満たします。
type ScriptFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ScriptRunner はファイル、標準入力、URL のいずれかから台本を読み込みます。
type ScriptRunner struct {
	fetcher ScriptFetcher
	stdin   io.Reader
}

// NewScriptRunner は依存関係を注入して初期化します。stdin が nil の場合は os.Stdin を使います。
func NewScriptRunner(fetcher ScriptFetcher, stdin io.Reader) *ScriptRunner {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &ScriptRunner{
		fetcher: fetcher,
		stdin:   stdin,
	}
}

// Run は source が示す台本を読み込み、本文を返すのだ。
func (sr *ScriptRunner) Run(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("台本の入力元が指定されていません")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case source == StdinSource:
		slog.InfoContext(ctx, "標準入力から台本を読み込みます")
		data, err = io.ReadAll(sr.stdin)
	case isRemote(source):
		if sr.fetcher == nil {
			return "", fmt.Errorf("URL からの読み込みには HTTP クライアントが必要です: %s", source)
		}
		slog.InfoContext(ctx, "URL から台本を取得します", "url", source)
		data, err = sr.fetcher.FetchBytes(ctx, source)
	default:
		slog.InfoContext(ctx, "ファイルから台本を読み込みます", "path", source)
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("台本の読み込みに失敗したのだ (source: %s): %w", source, err)
	}
	return string(data), nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
