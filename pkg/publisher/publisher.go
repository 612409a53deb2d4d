package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	Title     string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string   // 生成された storyboard.md のパス
	ManifestPath string   // 生成された storyboard.json のパス
	ImagePaths   []string // 保存された全画像のパスリスト
	Skipped      []string // 画像が完成していなかったショット
}

const (
	defaultStoryboardName = "storyboard.md"
	defaultManifestName   = "storyboard.json"
	defaultImageDirName   = "images"
	defaultTitle          = "Storyboard"
)

// ImageSaver はハンドルの画像をディレクトリへ書き出します。
type ImageSaver interface {
	Save(ctx context.Context, h domain.ImageHandle, sceneID, outputDir string) (string, error)
}

// StoryboardPublisher は完成したショット画像と絵コンテ文書を書き出します。
type StoryboardPublisher struct {
	images ImageSaver
	writer asset.OutputWriter
}

// NewStoryboardPublisher は StoryboardPublisher の新しいインスタンスを作成します。
func NewStoryboardPublisher(images ImageSaver, writer asset.OutputWriter) *StoryboardPublisher {
	if writer == nil {
		writer = asset.LocalWriter{}
	}
	return &StoryboardPublisher{
		images: images,
		writer: writer,
	}
}

type manifestEntry struct {
	ID                string             `json:"id"`
	OriginalText      string             `json:"original_text"`
	VisualDescription string             `json:"visual_description"`
	EditInstruction   string             `json:"edit_instruction,omitempty"`
	Status            domain.ImageStatus `json:"status"`
	Error             string             `json:"error,omitempty"`
	Image             string             `json:"image,omitempty"`
}

// Publish は画像の保存、Markdown と JSON の書き出しを一括して実行します。
// 画像が完成していないショットは Skipped に記録され、文書には状態のみが残ります。
func (p *StoryboardPublisher) Publish(ctx context.Context, shots []storyboard.Shot, opts Options) (PublishResult, error) {
	result := PublishResult{}

	markdownPath, err := asset.ResolveOutputPath(opts.OutputDir, defaultStoryboardName)
	if err != nil {
		return result, err
	}
	manifestPath, err := asset.ResolveOutputPath(opts.OutputDir, defaultManifestName)
	if err != nil {
		return result, err
	}
	imgDir, err := asset.ResolveOutputPath(opts.OutputDir, defaultImageDirName)
	if err != nil {
		return result, err
	}

	entries := make([]manifestEntry, 0, len(shots))
	for _, shot := range shots {
		entry := manifestEntry{
			ID:                shot.ID,
			OriginalText:      shot.OriginalText,
			VisualDescription: shot.VisualDescription,
			EditInstruction:   shot.EditInstruction,
			Status:            shot.Image.Status,
			Error:             shot.Image.Message,
		}

		if shot.Image.IsDone() {
			saved, err := p.images.Save(ctx, shot.Image.Handle, shot.ID, imgDir)
			if err != nil {
				return result, fmt.Errorf("%s の画像の書き込みに失敗しました: %w", shot.ID, err)
			}
			result.ImagePaths = append(result.ImagePaths, saved)
			entry.Image = path.Join(defaultImageDirName, filepath.Base(saved))
		} else {
			result.Skipped = append(result.Skipped, shot.ID)
		}
		entries = append(entries, entry)
	}

	title := opts.Title
	if title == "" {
		title = defaultTitle
	}
	if err := p.writer.Write(ctx, markdownPath, []byte(buildMarkdown(title, entries))); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	manifest, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return result, fmt.Errorf("マニフェストの生成に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, manifestPath, manifest); err != nil {
		return result, fmt.Errorf("マニフェストの書き込みに失敗しました: %w", err)
	}
	result.ManifestPath = manifestPath

	slog.InfoContext(ctx, "絵コンテを書き出しました",
		"markdown", markdownPath,
		"images", len(result.ImagePaths),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// buildMarkdown はショットごとに画像と台本の抜粋を並べた Markdown を返します。
func buildMarkdown(title string, entries []manifestEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("## %s\n\n", e.ID))
		if e.Image != "" {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", e.ID, e.Image))
		}

		for _, line := range strings.Split(e.OriginalText, "\n") {
			sb.WriteString(strings.TrimRight("> "+line, " ") + "\n")
		}
		sb.WriteString("\n")

		sb.WriteString(fmt.Sprintf("- description: %s\n", oneLine(e.VisualDescription)))
		if e.EditInstruction != "" {
			sb.WriteString(fmt.Sprintf("- edit: %s\n", oneLine(e.EditInstruction)))
		}
		sb.WriteString(fmt.Sprintf("- status: %s\n", e.Status))
		if e.Error != "" {
			sb.WriteString(fmt.Sprintf("- error: %s\n", e.Error))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
