package generator

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// ImageService は外部の画像生成・編集サービスへのインターフェースです。
// 失敗時は *domain.GenerationError を返すことが期待されます。
type ImageService interface {
	// GenerateImage はテキストの描写から画像を生成します。
	GenerateImage(ctx context.Context, description string) (domain.ImageHandle, error)
	// EditImage は既存の画像と編集指示から新しい画像を生成します。
	EditImage(ctx context.Context, source domain.ImageHandle, instruction string) (domain.ImageHandle, error)
}

// StateMap は画像状態マップへの書き込み口です。*store.ImageStateMap が実装します。
type StateMap interface {
	Set(epoch store.Epoch, sceneID string, state domain.ImageState) bool
	SetAll(epoch store.Epoch, sceneIDs []string, state domain.ImageState) bool
	Get(sceneID string) domain.ImageState
}
