package workflow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"google.golang.org/genai"
)

type stubModels struct {
	prompts []string
	image   []byte
}

func (s *stubModels) GenerateImages(_ context.Context, _, prompt string, _ *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	s.prompts = append(s.prompts, prompt)
	return &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: s.image, MIMEType: "image/png"}}},
	}, nil
}

func (s *stubModels) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: s.image, MIMEType: "image/png"}},
		}}}},
	}, nil
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testManagerConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.RequestInterval = 0
	cfg.ServiceRateInterval = 0
	return cfg
}

func TestManager_StoryboardRunner(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte("A quiet street.\n\nA car passes."), 0o644); err != nil {
		t.Fatal(err)
	}

	models := &stubModels{image: tinyPNG(t)}
	m, err := New(context.Background(), ManagerArgs{
		Config:      testManagerConfig(),
		Credentials: storyboard.CredentialFunc(func(context.Context) (bool, error) { return true, nil }),
		ImageModel:  models,
	})
	if err != nil {
		t.Fatalf("Manager の初期化に失敗しました: %v", err)
	}

	sr, err := m.BuildStoryboardRunner()
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")
	res, err := sr.Run(context.Background(), runner.GenerateOptions{Source: scriptPath, OutputDir: out})
	if err != nil {
		t.Fatalf("一括生成に失敗しました: %v", err)
	}

	if res.Shots != 2 || res.Batch.Completed != 2 {
		t.Errorf("結果が不正です: %+v", res)
	}
	if len(models.prompts) != 2 || !strings.HasSuffix(models.prompts[0], ", cinematic film still") {
		t.Errorf("プロンプトが不正です: %v", models.prompts)
	}
	if m.Vault().Len() == 0 {
		t.Error("画像が Vault に保存されていません")
	}

	t.Run("編集はセッション経由で行えるのだ", func(t *testing.T) {
		s := m.Session()
		if err := s.UpdateInstruction("Shot 1", "make it night"); err != nil {
			t.Fatal(err)
		}
		action, err := s.Regenerate(context.Background(), "Shot 1")
		if err != nil || action != "edit" {
			t.Errorf("編集されていません: %s, %v", action, err)
		}
	})

	t.Run("テキストモデルがなければ書き直し Runner は作れないこと", func(t *testing.T) {
		if _, err := m.BuildRefineRunner(); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})
}

func TestManager_MissingAPIKey(t *testing.T) {
	m, err := New(context.Background(), ManagerArgs{
		Config:      testManagerConfig(),
		Credentials: storyboard.CredentialFunc(func(context.Context) (bool, error) { return false, nil }),
	})
	if err != nil {
		t.Fatalf("API キーなしでも初期化できるべきです: %v", err)
	}

	s := m.Session()
	if _, err := s.SubmitScript(context.Background(), "One shot."); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunBatch(context.Background()); !errors.Is(err, domain.ErrCredentialNeeded) {
		t.Errorf("ErrCredentialNeeded ではありません: %v", err)
	}

	err = s.FullRegenerate(context.Background(), "Shot 1")
	if !domain.IsCredentialError(err) {
		t.Errorf("認証情報エラーではありません: %v", err)
	}
	if !s.CredentialNeeded() || s.Err() != domain.MessageInvalidCredential {
		t.Errorf("トップレベルの状態が不正です: %q", s.Err())
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), ManagerArgs{Config: testManagerConfig()}); err == nil {
		t.Error("CredentialSource なしで初期化できてしまいました")
	}
}
