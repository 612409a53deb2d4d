package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

const defaultGeminiTemperature = float32(0.4)

// GeminiTextGenerator は go-gemini-client を使ってテキストを生成します。
type GeminiTextGenerator struct {
	client gemini.GenerativeModel
}

// NewGeminiTextGenerator は gemini クライアントを初期化して GeminiTextGenerator を返します。
func NewGeminiTextGenerator(ctx context.Context, apiKey string) (*GeminiTextGenerator, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	client, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return &GeminiTextGenerator{client: client}, nil
}

// GenerateText はプロンプトを送信し、応答本文を返します。
func (g *GeminiTextGenerator) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", ClassifyError(err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("model=%s: 応答が空です", model)
	}
	return text, nil
}
