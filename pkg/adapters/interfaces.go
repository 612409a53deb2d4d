package adapters

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"google.golang.org/genai"
)

// ImageModel は画像の生成と編集に使う genai のモデル API です。
// *genai.Models はこのインターフェースを満たします。
type ImageModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ImageStore は生成結果の画像を保持し、ハンドルで参照できるようにします。
type ImageStore interface {
	Put(img imagedom.ImageResponse) (domain.ImageHandle, error)
	Get(h domain.ImageHandle) (imagedom.ImageResponse, error)
}
