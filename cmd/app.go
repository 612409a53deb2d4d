package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"
	kitconfig "github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
)

// loadConfig は設定ファイルと環境変数を読み込み、CLI フラグで上書きした設定を返します。
func loadConfig(cmd *cobra.Command) (kitconfig.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	o := opts
	if !cmd.Flags().Changed("interval") {
		o.Interval = -1
	}
	return o.Apply(cfg), nil
}

// newManager は CLI から使う Manager を構築します。
func newManager(ctx context.Context, cfg kitconfig.Config, tiers storyboard.TierSource) (*workflow.Manager, error) {
	if cfg.GeminiAPIKey == "" {
		slog.WarnContext(ctx, "GEMINI_API_KEY が設定されていません。画像生成は認証情報エラーになります")
	}

	m, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:      cfg,
		HTTPClient:  httpkit.New(opts.HTTPTimeout),
		Credentials: storyboard.NewEnvCredentialSource(),
		Tiers:       tiers,
		Stdin:       os.Stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗しました: %w", err)
	}
	return m, nil
}
