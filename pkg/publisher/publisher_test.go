package publisher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
)

func TestStoryboardPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	vault := asset.NewVault(0, nil)
	h, err := vault.Put(imagedom.ImageResponse{Data: []byte("png-bytes"), MimeType: "image/png"})
	if err != nil {
		t.Fatal(err)
	}

	shots := []storyboard.Shot{
		{
			Scene: domain.Scene{ID: "Shot 1", OriginalText: "Dawn.\n\nBirds sing.", VisualDescription: "Dawn over hills", EditInstruction: "warmer"},
			Image: domain.Done(h),
		},
		{
			Scene: domain.Scene{ID: "Shot 2", OriginalText: "Night.", VisualDescription: "Night city"},
			Image: domain.Failed(domain.MessageServiceFailure),
		},
	}

	pub := NewStoryboardPublisher(vault, nil)
	res, err := pub.Publish(context.Background(), shots, Options{OutputDir: dir, Title: "Morning"})
	if err != nil {
		t.Fatalf("パブリッシュに失敗しました: %v", err)
	}

	t.Run("完成した画像だけが保存されること", func(t *testing.T) {
		if len(res.ImagePaths) != 1 || filepath.Base(res.ImagePaths[0]) != "storyboard_shot_Shot_1.png" {
			t.Errorf("保存画像が不正です: %v", res.ImagePaths)
		}
		if len(res.Skipped) != 1 || res.Skipped[0] != "Shot 2" {
			t.Errorf("スキップが不正です: %v", res.Skipped)
		}
	})

	t.Run("Markdown に各ショットが含まれること", func(t *testing.T) {
		data, err := os.ReadFile(res.MarkdownPath)
		if err != nil {
			t.Fatal(err)
		}
		md := string(data)
		for _, want := range []string{
			"# Morning",
			"## Shot 1",
			"![Shot 1](images/storyboard_shot_Shot_1.png)",
			"> Dawn.\n>\n> Birds sing.",
			"- edit: warmer",
			"- error: " + domain.MessageServiceFailure,
		} {
			if !strings.Contains(md, want) {
				t.Errorf("Markdown に %q が含まれていません:\n%s", want, md)
			}
		}
	})

	t.Run("マニフェストが読み込めること", func(t *testing.T) {
		data, err := os.ReadFile(res.ManifestPath)
		if err != nil {
			t.Fatal(err)
		}
		var entries []manifestEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 || entries[0].Status != domain.StatusDone || entries[1].Error == "" {
			t.Errorf("マニフェストが不正です: %+v", entries)
		}
	})
}
