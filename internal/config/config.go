package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v3"
)

// CLI で使うデフォルト値
const (
	DefaultOutputDir   = "output"
	DefaultTitle       = "Storyboard"
	DefaultHTTPTimeout = 30 * time.Second
)

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	Script          string        // --script
	OutputDir       string        // --output-dir
	Title           string        // --title
	Refine          bool          // --refine
	Tier            string        // --tier
	Interval        time.Duration // --interval
	ContinueOnError bool          // --continue-on-error
	HTTPTimeout     time.Duration // --http-timeout
}

// LoadConfig はデフォルト設定に YAML ファイルと環境変数を順に重ねた設定を返します。
// path が空の場合は YAML ファイルを読みません。
func LoadConfig(path string) (config.Config, error) {
	cfg := config.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("設定ファイルの読み込みに失敗したのだ (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("設定ファイルの解析に失敗しました (%s): %w", path, err)
		}
	}

	cfg.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.TextModel = envutil.GetEnv("TEXT_MODEL", cfg.TextModel)
	cfg.ImageModel = envutil.GetEnv("IMAGE_MODEL", cfg.ImageModel)
	cfg.EditImageModel = envutil.GetEnv("EDIT_IMAGE_MODEL", cfg.EditImageModel)
	cfg.PromptSuffix = envutil.GetEnv("PROMPT_SUFFIX", cfg.PromptSuffix)
	cfg.Tier = domain.ParseTier(envutil.GetEnv("STORYBOARD_TIER", string(cfg.Tier)))

	if v := envutil.GetEnv("REQUEST_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("REQUEST_INTERVAL の値が不正です (%q): %w", v, err)
		}
		cfg.RequestInterval = d
	}

	return cfg, nil
}

// Apply は CLI フラグで指定された値を設定に反映します。未指定の値は変更しません。
func (o GenerateOptions) Apply(cfg config.Config) config.Config {
	if o.Tier != "" {
		cfg.Tier = domain.ParseTier(o.Tier)
	}
	if o.Interval >= 0 {
		cfg.RequestInterval = o.Interval
	}
	if o.ContinueOnError {
		cfg.HaltOnError = false
	}
	return cfg
}
