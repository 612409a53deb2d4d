package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/runner"
	"github.com/shouni/go-storyboard-kit/pkg/segmenter"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
)

// segmentCmd は、台本のショット分割結果だけを JSON で出力するのだ。画像生成は行わないのだ。
var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "台本をショットに分割して JSON で出力します。",
	RunE:  segmentCommand,
}

func segmentCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.Script == "" {
		return fmt.Errorf("台本（--script）を指定してほしいのだ")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	text, err := runner.NewScriptRunner(httpkit.New(opts.HTTPTimeout), cmd.InOrStdin()).Run(ctx, opts.Script)
	if err != nil {
		return err
	}

	scenes, err := segmenter.Segment(text, cfg.GroupSizeForTier(cfg.Tier))
	if err != nil {
		return fmt.Errorf("台本の分割に失敗しました: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(scenes)
}
