package asset

import (
	"fmt"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultImageDir は保存した画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "output/storyboard"
	// ShotFilePrefix はショット画像のファイル名の接頭辞です。
	ShotFilePrefix = "storyboard_shot_"
)

// fileNameSanitizer はファイル名として使用できない文字を置換します。
var fileNameSanitizer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// ShotFileName はシーン識別子と MIME タイプから保存用のファイル名を生成します。
// 例: "Shot 1", "image/png" -> "storyboard_shot_Shot_1.png"
func ShotFileName(sceneID, mimeType string) string {
	return ShotFilePrefix + fileNameSanitizer.Replace(sceneID) + PreferredExtension(mimeType)
}

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if baseDir == "" {
		baseDir = DefaultImageDir
	}
	p, err := urlpath.ResolveOutputPath(baseDir, fileName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました (dir: %s, file: %s): %w", baseDir, fileName, err)
	}
	return p, nil
}

// PreferredExtension は MIME タイプに対応する拡張子を返します。不明な場合は .png です。
func PreferredExtension(mimeType string) string {
	preferred := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
	}
	if ext, ok := preferred[mimeType]; ok {
		return ext
	}
	return ".png"
}
