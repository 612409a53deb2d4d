package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

// GenerateOptions は台本から絵コンテを一括生成する際のパラメータです。
type GenerateOptions struct {
	Source    string // ファイルパス、URL、または "-"
	OutputDir string // 空の場合は書き出しを行いません
	Title     string
	Refine    bool // バッチの前に描写をテキストモデルで書き直す
}

// GenerateResult は一括生成の結果です。
type GenerateResult struct {
	Shots   int
	Batch   generator.BatchResult
	Publish publisher.PublishResult
}

// StoryboardRunner は台本の読み込みから画像生成、書き出しまでを順に実行します。
type StoryboardRunner struct {
	session *storyboard.Session
	script  *ScriptRunner
	refine  *RefineRunner
	publish *DefaultPublisherRunner
}

// NewStoryboardRunner は依存関係を注入して初期化します。refine は nil でも構いません。
func NewStoryboardRunner(
	session *storyboard.Session,
	script *ScriptRunner,
	refine *RefineRunner,
	publish *DefaultPublisherRunner,
) *StoryboardRunner {
	return &StoryboardRunner{
		session: session,
		script:  script,
		refine:  refine,
		publish: publish,
	}
}

// Run は台本を読み込んでショットに分割し、全ショットの画像を生成して書き出します。
// バッチが途中で打ち切られた場合も、完成した画像は書き出すのだ。
func (r *StoryboardRunner) Run(ctx context.Context, opts GenerateOptions) (GenerateResult, error) {
	result := GenerateResult{}

	text, err := r.script.Run(ctx, opts.Source)
	if err != nil {
		return result, err
	}

	scenes, err := r.session.SubmitScript(ctx, text)
	if err != nil {
		return result, err
	}
	result.Shots = len(scenes)
	if len(scenes) == 0 {
		slog.WarnContext(ctx, "台本が空のため生成するショットがありません")
		return result, nil
	}

	if opts.Refine {
		if r.refine == nil {
			return result, fmt.Errorf("描写の書き直しにはテキストモデルの設定が必要です")
		}
		refined, err := r.refine.Run(ctx, scenes)
		if err != nil {
			return result, err
		}
		for _, scene := range refined {
			if err := r.session.UpdateDescription(scene.ID, scene.VisualDescription); err != nil {
				return result, err
			}
		}
	}

	batch, batchErr := r.session.RunBatch(ctx)
	result.Batch = batch

	if opts.OutputDir != "" && r.publish != nil {
		pub, err := r.publish.Run(ctx, r.session.Shots(), opts.OutputDir, opts.Title)
		if err != nil {
			return result, err
		}
		result.Publish = pub
	}

	if batchErr != nil {
		return result, batchErr
	}
	return result, nil
}
