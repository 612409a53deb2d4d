package workflow

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

// Workflow は、絵コンテ生成ワークフローの各工程を担当する Runner を構築するためのインターフェースを定義します。
type Workflow interface {
	BuildScriptRunner() (ScriptRunner, error)
	BuildRefineRunner() (RefineRunner, error)
	BuildPublishRunner() (PublishRunner, error)
	BuildStoryboardRunner() (StoryboardRunner, error)
}

// ScriptRunner は、ファイルや URL から台本の本文を読み込む責務を持ちます。
type ScriptRunner interface {
	Run(ctx context.Context, source string) (string, error)
}

// RefineRunner は、ショットの描写をテキストモデルで画像生成向けに書き直す責務を持ちます。
type RefineRunner interface {
	Run(ctx context.Context, scenes domain.Scenes) (domain.Scenes, error)
}

// PublishRunner は、完成したショット画像と絵コンテ文書を書き出す責務を持ちます。
type PublishRunner interface {
	Run(ctx context.Context, shots []storyboard.Shot, outputDir, title string) (publisher.PublishResult, error)
}

// StoryboardRunner は、台本の読み込みから画像生成、書き出しまでを一括して実行する責務を持ちます。
type StoryboardRunner interface {
	Run(ctx context.Context, opts runner.GenerateOptions) (runner.GenerateResult, error)
}
