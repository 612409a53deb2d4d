package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	_ "golang.org/x/image/webp"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiImageService は genai を使って画像の生成と編集を行う ImageService の実装です。
type GeminiImageService struct {
	models  ImageModel
	images  ImageStore
	limiter *rate.Limiter

	imageModel     string
	editModel      string
	promptSuffix   string
	aspectRatio    string
	outputMimeType string
	timeout        time.Duration
}

// NewGeminiImageService は設定値から GeminiImageService を初期化します。
func NewGeminiImageService(models ImageModel, store ImageStore, cfg config.Config) (*GeminiImageService, error) {
	if models == nil {
		return nil, fmt.Errorf("ImageModel は必須です")
	}
	if store == nil {
		return nil, fmt.Errorf("ImageStore は必須です")
	}

	limit := rate.Inf
	if cfg.ServiceRateInterval > 0 {
		limit = rate.Every(cfg.ServiceRateInterval)
	}
	burst := cfg.ServiceRateBurst
	if burst < 1 {
		burst = 1
	}

	return &GeminiImageService{
		models:         models,
		images:         store,
		limiter:        rate.NewLimiter(limit, burst),
		imageModel:     cfg.ImageModel,
		editModel:      cfg.EditImageModel,
		promptSuffix:   cfg.PromptSuffix,
		aspectRatio:    cfg.AspectRatio,
		outputMimeType: cfg.OutputMimeType,
		timeout:        cfg.RequestTimeout,
	}, nil
}

// NewGenAIClient は Gemini API バックエンドの genai クライアントを作成します。
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// BuildPrompt は描写にスタイルの接尾辞を付けて画像生成用のプロンプトにします。
func (s *GeminiImageService) BuildPrompt(description string) string {
	description = strings.TrimSpace(description)
	if s.promptSuffix == "" {
		return description
	}
	return description + ", " + s.promptSuffix
}

// GenerateImage は描写から画像を1枚生成し、ハンドルを返します。
func (s *GeminiImageService) GenerateImage(ctx context.Context, description string) (domain.ImageHandle, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.wait(ctx); err != nil {
		return "", err
	}

	prompt := s.BuildPrompt(description)
	resp, err := s.models.GenerateImages(ctx, s.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    s.aspectRatio,
		OutputMIMEType: s.outputMimeType,
	})
	if err != nil {
		return "", ClassifyError(err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", noImage(fmt.Errorf("model=%s: レスポンスに画像が含まれていません", s.imageModel))
	}
	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = s.outputMimeType
	}
	return s.keep(img.ImageBytes, mimeType)
}

// EditImage は既存の画像と編集指示から新しい画像を生成し、ハンドルを返します。
func (s *GeminiImageService) EditImage(ctx context.Context, source domain.ImageHandle, instruction string) (domain.ImageHandle, error) {
	src, err := s.images.Get(source)
	if err != nil {
		return "", domain.NewGenerationError(domain.KindServiceFailure, domain.MessageServiceFailure,
			fmt.Errorf("編集元の画像を取得できません: %w", err))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.wait(ctx); err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(src.Data, src.MimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	resp, err := s.models.GenerateContent(ctx, s.editModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return "", ClassifyError(err)
	}

	blob := firstInlineImage(resp)
	if blob == nil {
		return "", noImage(fmt.Errorf("model=%s: 編集結果に画像が含まれていません", s.editModel))
	}
	return s.keep(blob.Data, blob.MIMEType)
}

// keep はデコード可能な画像であることを確認してから保存します。
func (s *GeminiImageService) keep(data []byte, mimeType string) (domain.ImageHandle, error) {
	format, err := ValidateImage(data)
	if err != nil {
		return "", noImage(err)
	}
	if mimeType == "" {
		mimeType = "image/" + format
	}

	handle, err := s.images.Put(imagedom.ImageResponse{Data: data, MimeType: mimeType})
	if err != nil {
		return "", noImage(err)
	}
	return handle, nil
}

func (s *GeminiImageService) wait(ctx context.Context) error {
	if s.limiter.Tokens() < 1 {
		slog.DebugContext(ctx, "クライアント側のレート制限により待機します")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レート制限の待機中にエラーが発生しました: %w", err)
	}
	return nil
}

func (s *GeminiImageService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ValidateImage は data が PNG/JPEG/WebP として解釈できるかを確認し、形式名を返します。
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("画像データが空です")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("画像として解釈できません: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("画像サイズが不正です (%dx%d)", cfg.Width, cfg.Height)
	}
	return format, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func noImage(cause error) error {
	return domain.NewGenerationError(domain.KindNoImageProduced, domain.MessageNoImageProduced, cause)
}
