package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/runner"

	"github.com/spf13/cobra"
)

// generateCmd は、台本から全ショットの画像を生成して絵コンテを書き出します。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "台本から絵コンテ画像を一括生成します。",
	Long: `台本をショットに分割し、各ショットの画像を順番に生成します。
完成した画像は Markdown と JSON のマニフェストとともに出力ディレクトリへ書き出されます。`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物の出力ディレクトリ。")
	generateCmd.Flags().StringVar(&opts.Title, "title", config.DefaultTitle, "絵コンテのタイトル。")
	generateCmd.Flags().BoolVar(&opts.Refine, "refine", false, "生成前にテキストモデルで各ショットの描写を書き直します。")
	generateCmd.Flags().DurationVar(&opts.Interval, "interval", 0, "バッチ内のリクエスト間の待機時間。未指定の場合は設定に従います。")
	generateCmd.Flags().BoolVar(&opts.ContinueOnError, "continue-on-error", false, "失敗したショットがあっても残りの生成を続けます。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.Script == "" {
		return fmt.Errorf("台本（--script）を指定してほしいのだ")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "絵コンテ生成を開始します",
		"tier", cfg.Tier,
		"image_model", cfg.ImageModel,
		"interval", cfg.RequestInterval,
		"halt_on_error", cfg.HaltOnError,
		"output", opts.OutputDir)

	m, err := newManager(ctx, cfg, nil)
	if err != nil {
		return err
	}
	sr, err := m.BuildStoryboardRunner()
	if err != nil {
		return err
	}

	res, err := sr.Run(ctx, runner.GenerateOptions{
		Source:    opts.Script,
		OutputDir: opts.OutputDir,
		Title:     opts.Title,
		Refine:    opts.Refine,
	})
	if err != nil {
		if msg := m.Session().Err(); msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return fmt.Errorf("絵コンテ生成中にエラーが発生しました: %w", err)
	}

	slog.InfoContext(ctx, "絵コンテ生成が完了しました",
		"shots", res.Shots,
		"completed", res.Batch.Completed,
		"failed", res.Batch.Failed,
		"aborted", res.Batch.Aborted,
		"markdown", res.Publish.MarkdownPath)
	if res.Batch.Failed > 0 {
		return fmt.Errorf("%d 件のショットの生成に失敗したのだ", res.Batch.Failed)
	}
	return nil
}
