package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

// BatchPolicy はバッチ生成の流量制御と失敗時の振る舞いを定義します。
type BatchPolicy struct {
	// Interval は次のシーンへ進む前に挟む待機時間です。
	Interval time.Duration
	// HaltOnError が true の場合、失敗したシーン以降は試行しません。
	// false の場合でも認証情報エラーでは常に中断します。
	HaltOnError bool
}

// BatchResult はバッチ1回分の集計です。
type BatchResult struct {
	Epoch      store.Epoch
	Total      int
	Completed  int
	Failed     int
	Attempted  int
	Aborted    bool // 失敗によって残りのシーンを打ち切った
	Superseded bool // 実行中にエポックが進み、結果が破棄された
}

// BatchGenerator はシーン列を厳密に逐次処理し、リクエスト間に待機時間を挟んで画像を生成します。
// 同時に1つのバッチしか実行せず、同じエポックに対して2度実行することもありません。
type BatchGenerator struct {
	service ImageService
	states  StateMap
	policy  BatchPolicy

	mu        sync.Mutex
	running   bool
	ranEpochs map[store.Epoch]struct{}

	wait func(ctx context.Context, d time.Duration) error
}

// NewBatchGenerator は BatchGenerator の新しいインスタンスを初期化します。
func NewBatchGenerator(service ImageService, states StateMap, policy BatchPolicy) *BatchGenerator {
	return &BatchGenerator{
		service:   service,
		states:    states,
		policy:    policy,
		ranEpochs: make(map[store.Epoch]struct{}),
		wait:      sleepContext,
	}
}

// Execute は全シーンを Loading にした後、先頭から1件ずつ画像生成を実行します。
//
// シーン単位の失敗はそのシーンの Error 状態として記録され、戻り値のエラーにはなりません。
// 認証情報の失敗のみ、バッチを中断したうえでエラーとして返します。
func (bg *BatchGenerator) Execute(ctx context.Context, epoch store.Epoch, scenes domain.Scenes) (BatchResult, error) {
	result := BatchResult{Epoch: epoch, Total: len(scenes)}

	// 空のシーン列ではエポックを消費しない
	if len(scenes) == 0 {
		return result, nil
	}

	if err := bg.begin(epoch); err != nil {
		return result, err
	}
	defer bg.end()

	if !bg.states.SetAll(epoch, scenes.IDs(), domain.Loading()) {
		result.Superseded = true
		return result, nil
	}

	slog.InfoContext(ctx, "バッチ生成を開始します",
		"epoch", epoch,
		"scenes", len(scenes),
		"interval", bg.policy.Interval,
	)

	for i, scene := range scenes {
		logger := slog.With("epoch", epoch, "scene_id", scene.ID, "index", i+1)
		logger.InfoContext(ctx, "シーンの画像生成を開始します")

		startTime := time.Now()
		result.Attempted++
		handle, err := bg.service.GenerateImage(ctx, scene.VisualDescription)
		if err != nil {
			result.Failed++
			if !bg.states.Set(epoch, scene.ID, domain.Failed(domain.UserMessage(err))) {
				result.Superseded = true
				return result, nil
			}
			logger.WarnContext(ctx, "シーンの画像生成に失敗しました", "error", err)

			if domain.IsCredentialError(err) {
				result.Aborted = i < len(scenes)-1
				return result, fmt.Errorf("%s の生成中に認証情報エラーが発生したためバッチを中断しました: %w", scene.ID, err)
			}
			if ctx.Err() != nil {
				return result, fmt.Errorf("バッチ生成がキャンセルされました: %w", ctx.Err())
			}
			if bg.policy.HaltOnError {
				result.Aborted = i < len(scenes)-1
				slog.WarnContext(ctx, "失敗したため残りのシーンを中断します",
					"epoch", epoch, "remaining", len(scenes)-i-1)
				return result, nil
			}
		} else {
			if !bg.states.Set(epoch, scene.ID, domain.Done(handle)) {
				result.Superseded = true
				return result, nil
			}
			result.Completed++
			logger.InfoContext(ctx, "シーンの画像生成が完了しました", "duration", time.Since(startTime).Round(time.Millisecond))
		}

		if i < len(scenes)-1 && bg.policy.Interval > 0 {
			slog.DebugContext(ctx, "APIレート制限のため待機します", "interval", bg.policy.Interval)
			if err := bg.wait(ctx, bg.policy.Interval); err != nil {
				return result, fmt.Errorf("リクエスト間の待機中にエラーが発生しました: %w", err)
			}
		}
	}

	slog.InfoContext(ctx, "バッチ生成が完了しました",
		"epoch", epoch,
		"completed", result.Completed,
		"failed", result.Failed,
	)
	return result, nil
}

// Running はバッチが実行中かどうかを返します。
func (bg *BatchGenerator) Running() bool {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return bg.running
}

func (bg *BatchGenerator) begin(epoch store.Epoch) error {
	bg.mu.Lock()
	defer bg.mu.Unlock()

	if bg.running {
		return domain.ErrBatchInFlight
	}
	if _, ok := bg.ranEpochs[epoch]; ok {
		return fmt.Errorf("epoch=%d: %w", epoch, domain.ErrBatchAlreadyRun)
	}
	bg.running = true
	bg.ranEpochs[epoch] = struct{}{}
	return nil
}

func (bg *BatchGenerator) end() {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.running = false
}

// sleepContext は d だけ待機します。コンテキストがキャンセルされた場合は即座に戻ります。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
