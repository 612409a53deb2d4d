package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"google.golang.org/genai"
)

// buildImageService 提供された構成と依存関係を使用して GeminiImageService を初期化し、返します。
func buildImageService(
	ctx context.Context,
	cfg config.Config,
	models adapters.ImageModel,
	vault *asset.Vault) (*adapters.GeminiImageService, error) {

	if models == nil {
		m, err := initializeImageModel(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		models = m
	}

	return adapters.NewGeminiImageService(models, vault, cfg)
}

// initializeImageModel は genai クライアントを初期化し、モデル API を返します。
// API キーが未設定の場合は、呼び出しのたびに認証情報エラーを返すモデルを返します。
func initializeImageModel(ctx context.Context, apiKey string) (adapters.ImageModel, error) {
	if apiKey == "" {
		return missingCredentialModel{}, nil
	}
	client, err := adapters.NewGenAIClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("GenAI クライアントの初期化に失敗しました: %w", err)
	}
	return client.Models, nil
}

type missingCredentialModel struct{}

func (missingCredentialModel) GenerateImages(context.Context, string, string, *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return nil, errMissingCredential()
}

func (missingCredentialModel) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, errMissingCredential()
}

func errMissingCredential() error {
	return domain.NewGenerationError(domain.KindInvalidCredential, domain.MessageInvalidCredential, domain.ErrCredentialNeeded)
}
