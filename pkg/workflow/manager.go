package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

// ManagerArgs は Manager の構築に必要な依存関係です。
type ManagerArgs struct {
	Config      config.Config
	HTTPClient  runner.ScriptFetcher
	Credentials storyboard.CredentialSource
	Tiers       storyboard.TierSource
	Writer      asset.OutputWriter
	Stdin       io.Reader

	// 以下は外部サービスを差し替える場合に指定します。nil の場合は Gemini に接続します。
	ImageModel    adapters.ImageModel
	TextGenerator runner.TextGenerator
}

// Manager は、セッションとワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg           config.Config
	httpClient    runner.ScriptFetcher
	writer        asset.OutputWriter
	stdin         io.Reader
	vault         *asset.Vault
	session       *storyboard.Session
	textGen       runner.TextGenerator
	promptBuilder prompts.PromptBuilder
}

// New は、設定を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Credentials == nil {
		return nil, fmt.Errorf("CredentialSource は必須です")
	}
	if args.Writer == nil {
		args.Writer = asset.LocalWriter{}
	}

	vault := asset.NewVault(args.Config.ImageTTL, args.Writer)

	service, err := buildImageService(ctx, args.Config, args.ImageModel, vault)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗したのだ: %w", err)
	}

	session, err := storyboard.NewSession(storyboard.SessionArgs{
		Config:      args.Config,
		Service:     service,
		Credentials: args.Credentials,
		Tiers:       args.Tiers,
	})
	if err != nil {
		return nil, fmt.Errorf("セッションの初期化に失敗しました: %w", err)
	}

	textGen, err := initializeTextGenerator(ctx, args.Config.GeminiAPIKey, args.TextGenerator)
	if err != nil {
		return nil, err
	}

	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}

	return &Manager{
		cfg:           args.Config,
		httpClient:    args.HTTPClient,
		writer:        args.Writer,
		stdin:         args.Stdin,
		vault:         vault,
		session:       session,
		textGen:       textGen,
		promptBuilder: pb,
	}, nil
}

// Session は Manager が所有する絵コンテセッションを返します。
func (m *Manager) Session() *storyboard.Session { return m.session }

// Vault はセッション中に生成された画像の保管領域を返すのだ。
func (m *Manager) Vault() *asset.Vault { return m.vault }

// Config は Manager の設定を返します。
func (m *Manager) Config() config.Config { return m.cfg }

// initializeTextGenerator はテキスト生成クライアントを初期化します。
// 引数として既存の実装が渡された場合はそれを返し、API キーがない場合は nil を返します。
func initializeTextGenerator(ctx context.Context, apiKey string, textGen runner.TextGenerator) (runner.TextGenerator, error) {
	if textGen != nil {
		return textGen, nil
	}
	if apiKey == "" {
		slog.DebugContext(ctx, "API キーが未設定のためテキスト生成クライアントを作成しません")
		return nil, nil
	}
	gen, err := adapters.NewGeminiTextGenerator(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return gen, nil
}
