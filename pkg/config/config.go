package config

import (
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// デフォルト値の定義
const (
	DefaultTextModel           = "gemini-2.5-flash"
	DefaultImageModel          = "imagen-4.0-generate-001"
	DefaultEditImageModel      = "gemini-2.5-flash-image"
	DefaultAspectRatio         = "16:9"
	DefaultOutputMimeType      = "image/png"
	DefaultPromptSuffix        = "cinematic film still"
	DefaultRequestInterval     = 15 * time.Second
	DefaultServiceRateInterval = 5 * time.Second
	DefaultServiceRateBurst    = 2
	DefaultFreeGroupSize       = 1
	DefaultPaidGroupSize       = 2
	DefaultRetryConcurrency    = 2
	DefaultImageTTL            = 0 // 0 はセッション終了まで保持するのだ
)

// Config は Go Storyboard Kit の各コンポーネントを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey   string `yaml:"-"`
	TextModel      string `yaml:"text_model"`
	ImageModel     string `yaml:"image_model"`
	EditImageModel string `yaml:"edit_image_model"`

	// --- Generation Settings ---
	PromptSuffix   string `yaml:"prompt_suffix"`
	AspectRatio    string `yaml:"aspect_ratio"`
	OutputMimeType string `yaml:"output_mime_type"`

	// --- Batch Policy ---
	// RequestInterval はバッチ内のリクエスト間に挟む待機時間です。
	RequestInterval time.Duration `yaml:"request_interval"`
	// HaltOnError が true の場合、バッチ内で1件でも失敗すると残りを中断します。
	HaltOnError bool `yaml:"halt_on_error"`

	// --- Client-side Rate Limit ---
	ServiceRateInterval time.Duration `yaml:"service_rate_interval"`
	ServiceRateBurst    int           `yaml:"service_rate_burst"`

	// --- Tier Policy ---
	Tier          domain.Tier `yaml:"tier"`
	FreeGroupSize int         `yaml:"free_group_size"`
	PaidGroupSize int         `yaml:"paid_group_size"`

	// --- Session ---
	RetryConcurrency int           `yaml:"retry_concurrency"`
	ImageTTL         time.Duration `yaml:"image_ttl"`

	// --- Timeout ---
	// RequestTimeout は外部呼び出し1回あたりのタイムアウトです。0 の場合は設定しません。
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		TextModel:           DefaultTextModel,
		ImageModel:          DefaultImageModel,
		EditImageModel:      DefaultEditImageModel,
		PromptSuffix:        DefaultPromptSuffix,
		AspectRatio:         DefaultAspectRatio,
		OutputMimeType:      DefaultOutputMimeType,
		RequestInterval:     DefaultRequestInterval,
		HaltOnError:         true,
		ServiceRateInterval: DefaultServiceRateInterval,
		ServiceRateBurst:    DefaultServiceRateBurst,
		Tier:                domain.TierFree,
		FreeGroupSize:       DefaultFreeGroupSize,
		PaidGroupSize:       DefaultPaidGroupSize,
		RetryConcurrency:    DefaultRetryConcurrency,
		ImageTTL:            DefaultImageTTL,
	}
}

// GroupSizeForTier はアカウント種別に応じた1シーンあたりの段落数を返します。
func (c Config) GroupSizeForTier(t domain.Tier) int {
	switch t {
	case domain.TierPaid:
		if c.PaidGroupSize > 0 {
			return c.PaidGroupSize
		}
		return DefaultPaidGroupSize
	default:
		if c.FreeGroupSize > 0 {
			return c.FreeGroupSize
		}
		return DefaultFreeGroupSize
	}
}
