package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

var (
	opts       config.GenerateOptions
	configPath string
	verbose    bool
)

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義します。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML 形式の設定ファイルのパス。")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "デバッグログを出力します。")

	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Script, "script", "s", "", "台本のファイルパス、URL、または '-'（標準入力）。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "URL から台本を取得する際のタイムアウト。")

	// --- 分割ポリシー ---
	rootCmd.PersistentFlags().StringVar(&opts.Tier, "tier", "", "アカウント種別 (free|paid)。未指定の場合は設定ファイルか環境変数に従います。")
}

// preRunAppE は、コマンド実行前にロガーを構成するのだ。
// API キーはコマンドごとに必要な時点で検証します。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Execute は、アプリケーションのメインエントリポイントです。
func Execute() {
	clibase.Execute(
		"storyboard",
		addAppFlags,
		preRunAppE,
		generateCmd,
		segmentCmd,
		studioCmd,
	)
}
