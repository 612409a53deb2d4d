package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/segmenter"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"golang.org/x/sync/errgroup"
)

// SessionArgs は Session の構築に必要な依存関係です。
type SessionArgs struct {
	Config      config.Config
	Service     generator.ImageService
	Credentials CredentialSource
	// 以下は省略可能です。
	Tiers     TierSource
	Segmenter segmenter.Segmenter
}

// Session は絵コンテ1件分の状態を所有し、利用者の操作をコマンドとして受け付けます。
// シーンと画像状態の変更はすべて Session を経由します。
type Session struct {
	cfg         config.Config
	segmenter   segmenter.Segmenter
	credentials CredentialSource
	tiers       TierSource

	scenes *store.SceneStore
	states *store.ImageStateMap
	batch  *generator.BatchGenerator
	regen  *generator.Regenerator

	mu               sync.Mutex
	tier             domain.Tier
	topError         string
	credentialNeeded bool
}

// NewSession は新しい Session を初期化します。
func NewSession(args SessionArgs) (*Session, error) {
	if args.Service == nil {
		return nil, fmt.Errorf("ImageService は必須です")
	}
	if args.Credentials == nil {
		return nil, fmt.Errorf("CredentialSource は必須です")
	}
	if args.Tiers == nil {
		args.Tiers = NewTierBroadcaster(args.Config.Tier)
	}
	if args.Segmenter == nil {
		args.Segmenter = segmenter.New()
	}

	states := store.NewImageStateMap()
	policy := generator.BatchPolicy{
		Interval:    args.Config.RequestInterval,
		HaltOnError: args.Config.HaltOnError,
	}

	return &Session{
		cfg:         args.Config,
		segmenter:   args.Segmenter,
		credentials: args.Credentials,
		tiers:       args.Tiers,
		scenes:      store.NewSceneStore(),
		states:      states,
		batch:       generator.NewBatchGenerator(args.Service, states, policy),
		regen:       generator.NewRegenerator(args.Service, states),
		tier:        args.Tiers.Current(),
	}, nil
}

// WatchTier は ctx が終了するまで種別の変更を監視します。
// 変更は次回の SubmitScript から反映され、既存のシーンは分割し直しません。
func (s *Session) WatchTier(ctx context.Context) {
	updates := s.tiers.Subscribe(ctx)
	go func() {
		for t := range updates {
			s.mu.Lock()
			s.tier = t
			s.mu.Unlock()
			slog.InfoContext(ctx, "アカウント種別が変更されました", "tier", t, "group_size", s.cfg.GroupSizeForTier(t))
		}
	}()
}

// Tier は次回の分割に使われるアカウント種別を返します。
func (s *Session) Tier() domain.Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tier
}

// OnStateChange は画像状態の変化を受け取るリスナーを登録します。
func (s *Session) OnStateChange(l store.StateListener) {
	s.states.Subscribe(l)
}

// SubmitScript は台本を新しいシーン列に分割し、既存のシーンと画像状態を置き換えます。
// 空白のみの台本は何も変更しません。分割が終わるまで既存のシーンはそのまま残り、
// エポックの更新とシーンの置き換えは一括で行われます。
func (s *Session) SubmitScript(ctx context.Context, script string) (domain.Scenes, error) {
	if strings.TrimSpace(script) == "" {
		slog.DebugContext(ctx, "台本が空のため何もしません")
		return domain.Scenes{}, nil
	}

	tier := s.Tier()
	groupSize := s.cfg.GroupSizeForTier(tier)

	scenes, segErr := s.segmenter.Segment(script, groupSize)

	s.mu.Lock()
	epoch := s.states.Reset()
	if segErr != nil {
		s.scenes.Clear()
		s.topError = domain.MessageSegmentation
	} else {
		s.scenes.Replace(scenes)
		s.topError = ""
	}
	s.mu.Unlock()

	if segErr != nil {
		slog.ErrorContext(ctx, "台本の分割に失敗しました", "epoch", epoch, "error", segErr)
		return nil, fmt.Errorf("台本の分割に失敗しました: %w", segErr)
	}

	slog.InfoContext(ctx, "台本をショットに分割しました",
		"epoch", epoch,
		"tier", tier,
		"group_size", groupSize,
		"shots", len(scenes),
	)
	return scenes, nil
}

// snapshot は同じ世代に属するエポックとシーン列の組を返します。
func (s *Session) snapshot() (store.Epoch, domain.Scenes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states.Epoch(), s.scenes.List()
}

// sceneAt は同じ世代に属するエポックとシーンの組を返します。
func (s *Session) sceneAt(sceneID string) (store.Epoch, domain.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scene, err := s.scenes.Get(sceneID)
	return s.states.Epoch(), scene, err
}

// RunBatch は現在のシーン列すべての画像を順番に生成します。
// 有効な認証情報がない場合は何も送信せずに domain.ErrCredentialNeeded を返します。
func (s *Session) RunBatch(ctx context.Context) (generator.BatchResult, error) {
	epoch, scenes := s.snapshot()

	ok, err := s.credentials.HasCredential(ctx)
	if err != nil || !ok {
		s.mu.Lock()
		s.credentialNeeded = true
		s.topError = domain.ErrCredentialNeeded.Error()
		s.mu.Unlock()
		if err != nil {
			return generator.BatchResult{Epoch: epoch}, fmt.Errorf("%w: %w", domain.ErrCredentialNeeded, err)
		}
		return generator.BatchResult{Epoch: epoch}, domain.ErrCredentialNeeded
	}

	s.mu.Lock()
	s.credentialNeeded = false
	s.mu.Unlock()

	res, err := s.batch.Execute(ctx, epoch, scenes)
	if err != nil {
		s.handleError(ctx, err)
	}
	return res, err
}

// Regenerate は編集指示があり完成画像がある場合は編集を、それ以外は新規生成を行います。
func (s *Session) Regenerate(ctx context.Context, sceneID string) (generator.Action, error) {
	epoch, scene, err := s.sceneAt(sceneID)
	if err != nil {
		return "", err
	}
	action, err := s.regen.Regenerate(ctx, epoch, scene)
	if err != nil {
		s.handleError(ctx, err)
	}
	return action, err
}

// FullRegenerate は既存の画像を無視してシーンの画像を新規生成します。
func (s *Session) FullRegenerate(ctx context.Context, sceneID string) error {
	epoch, scene, err := s.sceneAt(sceneID)
	if err != nil {
		return err
	}
	if err := s.regen.FullRegenerate(ctx, epoch, scene); err != nil {
		s.handleError(ctx, err)
		return err
	}
	return nil
}

// RetryFailed は Error 状態のシーンをすべて新規生成し直し、対象件数を返します。
// 同時実行数は設定の RetryConcurrency で制限されます。
func (s *Session) RetryFailed(ctx context.Context) (int, error) {
	epoch, scenes := s.snapshot()
	var targets domain.Scenes
	for _, scene := range scenes {
		if s.states.Get(scene.ID).IsError() {
			targets = append(targets, scene)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	limit := s.cfg.RetryConcurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, scene := range targets {
		g.Go(func() error {
			return s.regen.FullRegenerate(ctx, epoch, scene)
		})
	}

	slog.InfoContext(ctx, "失敗したシーンを再生成します", "epoch", epoch, "scenes", len(targets), "concurrency", limit)
	if err := g.Wait(); err != nil {
		s.handleError(ctx, err)
		return len(targets), err
	}
	return len(targets), nil
}

// UpdateInstruction はシーンの編集指示を置き換えます。画像状態は変更しません。
func (s *Session) UpdateInstruction(sceneID, text string) error {
	return s.scenes.UpdateInstruction(sceneID, text)
}

// UpdateDescription はシーンの描写を置き換えます。画像状態は変更しません。
func (s *Session) UpdateDescription(sceneID, text string) error {
	return s.scenes.UpdateDescription(sceneID, text)
}

// Scenes は現在のシーン列の複製を返します。
func (s *Session) Scenes() domain.Scenes {
	return s.scenes.List()
}

// Shot は表示用にシーンと画像状態を組にしたものです。
type Shot struct {
	domain.Scene
	Image domain.ImageState `json:"image"`
}

// Shots は現在のシーン列と各画像状態を返します。
func (s *Session) Shots() []Shot {
	s.mu.Lock()
	scenes := s.scenes.List()
	_, states := s.states.Snapshot()
	s.mu.Unlock()

	shots := make([]Shot, 0, len(scenes))
	for _, scene := range scenes {
		st, ok := states[scene.ID]
		if !ok {
			st = domain.Idle()
		}
		shots = append(shots, Shot{Scene: scene, Image: st})
	}
	return shots
}

// State は指定シーンの画像状態を返します。
func (s *Session) State(sceneID string) domain.ImageState {
	return s.states.Get(sceneID)
}

// Err はトップレベルのエラーメッセージを返します。エラーがなければ空文字列です。
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topError
}

// CredentialNeeded は認証情報の再選択が必要な状態かを返します。
func (s *Session) CredentialNeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentialNeeded
}

// BatchRunning はバッチが実行中かを返します。
func (s *Session) BatchRunning() bool {
	return s.batch.Running()
}

// handleError は認証情報の失敗をトップレベルのエラーとして記録します。
// シーン単位の失敗は画像状態に記録済みのため、ここでは扱いません。
func (s *Session) handleError(ctx context.Context, err error) {
	if errors.Is(err, domain.ErrStaleEpoch) || errors.Is(err, domain.ErrBatchInFlight) || errors.Is(err, domain.ErrBatchAlreadyRun) {
		return
	}
	if !domain.IsCredentialError(err) {
		return
	}

	s.mu.Lock()
	s.credentialNeeded = true
	s.topError = domain.UserMessage(err)
	s.mu.Unlock()
	slog.WarnContext(ctx, "認証情報の再選択が必要です", "error", err)
}
