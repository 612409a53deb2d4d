package workflow

import (
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
)

// BuildScriptRunner は、台本の読み込みを担当する Runner を作成します。
func (m *Manager) BuildScriptRunner() (ScriptRunner, error) {
	return m.scriptRunner(), nil
}

// BuildRefineRunner は、描写の書き直しを担当する Runner を作成します。
func (m *Manager) BuildRefineRunner() (RefineRunner, error) {
	rr := m.refineRunner()
	if rr == nil {
		return nil, fmt.Errorf("テキスト生成クライアントが初期化されていません (GEMINI_API_KEY を確認してください)")
	}
	return rr, nil
}

// BuildPublishRunner は、成果物のパブリッシュを担当する Runner を作成します。
func (m *Manager) BuildPublishRunner() (PublishRunner, error) {
	return m.publishRunner(), nil
}

// BuildStoryboardRunner は、台本から絵コンテまでの一括生成を担当する Runner を作成します。
func (m *Manager) BuildStoryboardRunner() (StoryboardRunner, error) {
	return runner.NewStoryboardRunner(m.session, m.scriptRunner(), m.refineRunner(), m.publishRunner()), nil
}

func (m *Manager) scriptRunner() *runner.ScriptRunner {
	return runner.NewScriptRunner(m.httpClient, m.stdin)
}

func (m *Manager) refineRunner() *runner.RefineRunner {
	if m.textGen == nil {
		return nil
	}
	return runner.NewRefineRunner(m.textGen, m.promptBuilder, m.cfg.TextModel, m.cfg.PromptSuffix, m.cfg.RetryConcurrency)
}

func (m *Manager) publishRunner() *runner.DefaultPublisherRunner {
	pub := publisher.NewStoryboardPublisher(m.vault, m.writer)
	return runner.NewDefaultPublisherRunner(pub)
}
