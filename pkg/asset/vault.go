package asset

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/patrickmn/go-cache"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
)

const (
	handlePrefix         = "img-"
	defaultCleanupPeriod = 15 * time.Minute
)

// ErrImageNotFound はハンドルに対応する画像がセッション内に存在しないことを示します。
var ErrImageNotFound = domain.ErrImageNotFound

// OutputWriter は画像データを保存先へ書き込むためのインターフェースです。
type OutputWriter interface {
	Write(ctx context.Context, path string, data []byte) error
}

// Vault はセッション中に生成された画像をハンドル単位で保持するインメモリ領域です。
// プロセスをまたいだ永続化は行いません。
type Vault struct {
	cache  *cache.Cache
	ttl    time.Duration
	writer OutputWriter
}

// NewVault は指定された TTL で画像を保持する Vault を作成します。
// ttl が 0 以下の場合、画像はセッション終了まで保持されます。
func NewVault(ttl time.Duration, writer OutputWriter) *Vault {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	if writer == nil {
		writer = LocalWriter{}
	}
	return &Vault{
		cache:  cache.New(ttl, defaultCleanupPeriod),
		ttl:    ttl,
		writer: writer,
	}
}

// Put は画像を保存してハンドルを返します。同一内容の画像は同じハンドルになります。
func (v *Vault) Put(img imagedom.ImageResponse) (domain.ImageHandle, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("空の画像データは保存できません")
	}
	if img.MimeType == "" {
		img.MimeType = "image/png"
	}

	sum := sha256.Sum256(img.Data)
	handle := domain.ImageHandle(handlePrefix + hex.EncodeToString(sum[:])[:20])
	v.cache.Set(string(handle), img, v.ttl)
	return handle, nil
}

// Get はハンドルに対応する画像を返します。
func (v *Vault) Get(h domain.ImageHandle) (imagedom.ImageResponse, error) {
	val, ok := v.cache.Get(string(h))
	if !ok {
		return imagedom.ImageResponse{}, fmt.Errorf("%s: %w", h, ErrImageNotFound)
	}
	img, ok := val.(imagedom.ImageResponse)
	if !ok {
		return imagedom.ImageResponse{}, fmt.Errorf("unexpected value type in vault: %T", val)
	}
	return img, nil
}

// DataURL は表示層へ渡すための data URL を返します。
func (v *Vault) DataURL(h domain.ImageHandle) (string, error) {
	img, err := v.Get(h)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)), nil
}

// Save はシーンの画像を outputDir に書き出し、保存先パスを返します。
func (v *Vault) Save(ctx context.Context, h domain.ImageHandle, sceneID, outputDir string) (string, error) {
	img, err := v.Get(h)
	if err != nil {
		return "", err
	}

	finalPath, err := ResolveOutputPath(outputDir, ShotFileName(sceneID, img.MimeType))
	if err != nil {
		return "", err
	}

	if err := v.writer.Write(ctx, finalPath, img.Data); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました (path: %s): %w", finalPath, err)
	}

	slog.InfoContext(ctx, "ショット画像を保存しました", "scene_id", sceneID, "path", finalPath)
	return finalPath, nil
}

func (v *Vault) Len() int { return v.cache.ItemCount() }

// LocalWriter はローカルファイルシステムへ書き込む OutputWriter です。
type LocalWriter struct{}

func (LocalWriter) Write(_ context.Context, path string, data []byte) error {
	if strings.Contains(path, "://") {
		return fmt.Errorf("リモートの保存先には対応していません: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
