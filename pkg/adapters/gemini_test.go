package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"google.golang.org/genai"
)

type fakeModels struct {
	imagesResp  *genai.GenerateImagesResponse
	contentResp *genai.GenerateContentResponse
	err         error

	lastModel    string
	lastPrompt   string
	lastImageCfg *genai.GenerateImagesConfig
	lastContents []*genai.Content
	lastCfg      *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateImages(_ context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.lastModel, f.lastPrompt, f.lastImageCfg = model, prompt, cfg
	return f.imagesResp, f.err
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel, f.lastContents, f.lastCfg = model, contents, cfg
	return f.contentResp, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, models ImageModel) (*GeminiImageService, *asset.Vault) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ServiceRateInterval = 0
	vault := asset.NewVault(0, nil)
	svc, err := NewGeminiImageService(models, vault, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return svc, vault
}

func TestGeminiImageService_GenerateImage(t *testing.T) {
	data := pngBytes(t)
	models := &fakeModels{
		imagesResp: &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: data, MIMEType: "image/png"}}},
		},
	}
	svc, vault := newTestService(t, models)

	h, err := svc.GenerateImage(context.Background(), "  A lighthouse at dusk ")
	if err != nil {
		t.Fatalf("エラーが発生しました: %v", err)
	}

	t.Run("プロンプトと設定が正しく渡されること", func(t *testing.T) {
		if models.lastPrompt != "A lighthouse at dusk, cinematic film still" {
			t.Errorf("プロンプトが不正です: %q", models.lastPrompt)
		}
		if models.lastModel != config.DefaultImageModel {
			t.Errorf("モデルが不正です: %s", models.lastModel)
		}
		c := models.lastImageCfg
		if c == nil || c.NumberOfImages != 1 || c.AspectRatio != "16:9" || c.OutputMIMEType != "image/png" {
			t.Errorf("生成設定が不正です: %+v", c)
		}
	})

	t.Run("結果が Vault に保存されること", func(t *testing.T) {
		got, err := vault.Get(h)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got.Data, data) {
			t.Error("保存された画像が一致しません")
		}
	})
}

func TestGeminiImageService_GenerateImageFailures(t *testing.T) {
	tests := []struct {
		name     string
		models   *fakeModels
		wantKind domain.ErrorKind
	}{
		{
			name:     "画像が返らない場合は NoImageProduced",
			models:   &fakeModels{imagesResp: &genai.GenerateImagesResponse{}},
			wantKind: domain.KindNoImageProduced,
		},
		{
			name: "デコードできないデータは NoImageProduced",
			models: &fakeModels{imagesResp: &genai.GenerateImagesResponse{
				GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("not an image")}}},
			}},
			wantKind: domain.KindNoImageProduced,
		},
		{
			name:     "API エラーは分類されること",
			models:   &fakeModels{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}},
			wantKind: domain.KindRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.models)
			_, err := svc.GenerateImage(context.Background(), "x")
			ge, ok := domain.AsGenerationError(err)
			if !ok {
				t.Fatalf("GenerationError ではありません: %v", err)
			}
			if ge.Kind != tt.wantKind {
				t.Errorf("分類 期待値 %s, 実際の値 %s", tt.wantKind, ge.Kind)
			}
		})
	}
}

func TestGeminiImageService_EditImage(t *testing.T) {
	source := pngBytes(t)
	edited := pngBytes(t)

	models := &fakeModels{
		contentResp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "here you go"},
					{InlineData: &genai.Blob{Data: edited, MIMEType: "image/png"}},
				}},
			}},
		},
	}
	svc, vault := newTestService(t, models)
	srcHandle, err := vault.Put(imagedom.ImageResponse{Data: source, MimeType: "image/png"})
	if err != nil {
		t.Fatal(err)
	}

	h, err := svc.EditImage(context.Background(), srcHandle, "add rain")
	if err != nil {
		t.Fatalf("エラーが発生しました: %v", err)
	}
	if _, err := vault.Get(h); err != nil {
		t.Errorf("編集結果が保存されていません: %v", err)
	}

	if models.lastModel != config.DefaultEditImageModel {
		t.Errorf("モデルが不正です: %s", models.lastModel)
	}
	if len(models.lastContents) != 1 || len(models.lastContents[0].Parts) != 2 {
		t.Fatalf("送信内容が不正です: %+v", models.lastContents)
	}
	parts := models.lastContents[0].Parts
	if parts[0].InlineData == nil || !bytes.Equal(parts[0].InlineData.Data, source) {
		t.Error("編集元の画像が送信されていません")
	}
	if parts[1].Text != "add rain" {
		t.Errorf("編集指示が不正です: %q", parts[1].Text)
	}

	t.Run("編集元が存在しない場合はエラーになること", func(t *testing.T) {
		_, err := svc.EditImage(context.Background(), "img-missing", "x")
		if !errors.Is(err, asset.ErrImageNotFound) {
			t.Errorf("ErrImageNotFound ではありません: %v", err)
		}
	})
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    domain.ErrorKind
		wantMessage string
	}{
		{
			name:        "無効なAPIキー",
			err:         genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."},
			wantKind:    domain.KindInvalidCredential,
			wantMessage: domain.MessageInvalidCredential,
		},
		{
			name:        "取り消されたキー",
			err:         fmt.Errorf("call failed: %w", errors.New("Requested entity was not found.")),
			wantKind:    domain.KindCredentialRevoked,
			wantMessage: domain.MessageCredentialRevoked,
		},
		{
			name:     "403 は認証情報エラー",
			err:      genai.APIError{Code: 403, Message: "permission denied"},
			wantKind: domain.KindInvalidCredential,
		},
		{
			name:     "404 は取り消し扱い",
			err:      &genai.APIError{Code: 404, Message: "gone"},
			wantKind: domain.KindCredentialRevoked,
		},
		{
			name:     "キーに触れない 400 はサービス障害",
			err:      genai.APIError{Code: 400, Message: "prompt blocked"},
			wantKind: domain.KindServiceFailure,
		},
		{
			name:        "その他はサービス障害",
			err:         errors.New("connection reset"),
			wantKind:    domain.KindServiceFailure,
			wantMessage: domain.MessageServiceFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := ClassifyError(tt.err)
			if ge.Kind != tt.wantKind {
				t.Errorf("分類 期待値 %s, 実際の値 %s", tt.wantKind, ge.Kind)
			}
			if tt.wantMessage != "" && ge.Message != tt.wantMessage {
				t.Errorf("メッセージ 期待値 %q, 実際の値 %q", tt.wantMessage, ge.Message)
			}
			if ge.Unwrap() == nil {
				t.Error("原因エラーが保持されていません")
			}
		})
	}

	t.Run("nil は nil を返すこと", func(t *testing.T) {
		if ClassifyError(nil) != nil {
			t.Error("nil ではありません")
		}
	})
}

func TestValidateImage(t *testing.T) {
	format, err := ValidateImage(pngBytes(t))
	if err != nil || format != "png" {
		t.Errorf("PNG の検証に失敗しました: %s, %v", format, err)
	}
	if _, err := ValidateImage(nil); err == nil {
		t.Error("空のデータが受理されました")
	}
	if _, err := ValidateImage([]byte("GIF89a")); err == nil {
		t.Error("不正なデータが受理されました")
	}
}
