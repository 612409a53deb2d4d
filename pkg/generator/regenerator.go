package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// Action は再生成で実際に行われた操作の種類です。
type Action string

const (
	ActionGenerate Action = "generate"
	ActionEdit     Action = "edit"
)

// Regenerator は1シーン単位の再生成・編集を担当します。
// バッチの流量制御や中断ポリシーには参加せず、バッチと並行して呼び出せます。
// 同じシーンへの要求が重なった場合は、後に完了した方の結果が残ります。
type Regenerator struct {
	service ImageService
	states  StateMap
}

// NewRegenerator は Regenerator の新しいインスタンスを初期化します。
func NewRegenerator(service ImageService, states StateMap) *Regenerator {
	return &Regenerator{service: service, states: states}
}

// Regenerate は完成画像と編集指示の両方がある場合は編集を、それ以外は新規生成を行います。
func (r *Regenerator) Regenerate(ctx context.Context, epoch store.Epoch, scene domain.Scene) (Action, error) {
	current := r.states.Get(scene.ID)
	if current.IsDone() && scene.HasEditInstruction() {
		source := current.Handle
		action := ActionEdit
		err := r.run(ctx, epoch, scene, ActionEdit, func(ctx context.Context) (domain.ImageHandle, error) {
			handle, err := r.service.EditImage(ctx, source, scene.EditInstruction)
			if !errors.Is(err, domain.ErrImageNotFound) {
				return handle, err
			}
			// 編集元が手元に残っていなければ描写から作り直すのだ
			slog.WarnContext(ctx, "編集元の画像がないため新規生成に切り替えます", "scene_id", scene.ID, "source", source)
			action = ActionGenerate
			return r.service.GenerateImage(ctx, scene.VisualDescription)
		})
		return action, err
	}
	return ActionGenerate, r.FullRegenerate(ctx, epoch, scene)
}

// FullRegenerate は既存の画像を無視し、描写から画像を新規生成します。
func (r *Regenerator) FullRegenerate(ctx context.Context, epoch store.Epoch, scene domain.Scene) error {
	return r.run(ctx, epoch, scene, ActionGenerate, func(ctx context.Context) (domain.ImageHandle, error) {
		return r.service.GenerateImage(ctx, scene.VisualDescription)
	})
}

func (r *Regenerator) run(
	ctx context.Context,
	epoch store.Epoch,
	scene domain.Scene,
	action Action,
	call func(context.Context) (domain.ImageHandle, error),
) error {
	logger := slog.With("epoch", epoch, "scene_id", scene.ID, "action", action)

	if !r.states.Set(epoch, scene.ID, domain.Loading()) {
		return fmt.Errorf("%s: %w", scene.ID, domain.ErrStaleEpoch)
	}
	logger.InfoContext(ctx, "シーンの再生成を開始します")

	startTime := time.Now()
	handle, err := call(ctx)
	if err != nil {
		r.states.Set(epoch, scene.ID, domain.Failed(domain.UserMessage(err)))
		logger.WarnContext(ctx, "シーンの再生成に失敗しました", "error", err)
		return fmt.Errorf("%s の再生成に失敗しました: %w", scene.ID, err)
	}

	r.states.Set(epoch, scene.ID, domain.Done(handle))
	logger.InfoContext(ctx, "シーンの再生成が完了しました", "duration", time.Since(startTime).Round(time.Millisecond))
	return nil
}
