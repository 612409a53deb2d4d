package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"golang.org/x/sync/errgroup"
)

// TextGenerator はテキストモデルへプロンプトを送って応答を受け取ります。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// RefineRunner は各ショットの描写をテキストモデルで画像生成向けに書き直すのだ。
type RefineRunner struct {
	ai            TextGenerator
	promptBuilder prompts.PromptBuilder
	model         string
	styleSuffix   string
	concurrency   int
}

// NewRefineRunner は依存関係を注入して初期化します。
func NewRefineRunner(ai TextGenerator, pb prompts.PromptBuilder, model, styleSuffix string, concurrency int) *RefineRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RefineRunner{
		ai:            ai,
		promptBuilder: pb,
		model:         model,
		styleSuffix:   styleSuffix,
		concurrency:   concurrency,
	}
}

// Run は書き直した描写を反映したシーン列を返します。入力のシーン列は変更しません。
// いずれかのショットで失敗した場合は、その時点でエラーを返します。
func (rr *RefineRunner) Run(ctx context.Context, scenes domain.Scenes) (domain.Scenes, error) {
	refined := make(domain.Scenes, len(scenes))
	copy(refined, scenes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rr.concurrency)

	for i := range refined {
		g.Go(func() error {
			scene := refined[i]
			prompt, err := rr.promptBuilder.Build(prompts.ModeRefine, prompts.TemplateData{
				ShotID:       scene.ID,
				OriginalText: scene.OriginalText,
				Description:  scene.VisualDescription,
				StyleSuffix:  rr.styleSuffix,
			})
			if err != nil {
				return fmt.Errorf("%s のプロンプト生成に失敗: %w", scene.ID, err)
			}

			text, err := rr.ai.GenerateText(gctx, prompt, rr.model)
			if err != nil {
				return fmt.Errorf("%s の描写の書き直しに失敗しました: %w", scene.ID, err)
			}
			refined[i].VisualDescription = strings.TrimSpace(text)
			slog.DebugContext(gctx, "描写を書き直しました", "scene_id", scene.ID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "ショットの描写を書き直しました", "shots", len(refined), "model", rr.model)
	return refined, nil
}
