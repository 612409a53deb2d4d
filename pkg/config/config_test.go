package config

import (
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RequestInterval != DefaultRequestInterval {
		t.Errorf("期待値 %v, 実際の値 %v", DefaultRequestInterval, cfg.RequestInterval)
	}
	if !cfg.HaltOnError {
		t.Error("デフォルトではエラー時にバッチを中断するべきです")
	}
	if cfg.ImageModel != DefaultImageModel {
		t.Errorf("期待値 '%s', 実際の値 '%s'", DefaultImageModel, cfg.ImageModel)
	}
	if cfg.ImageTTL != 0 {
		t.Errorf("画像はセッション中に期限切れにならないのだ: %v", cfg.ImageTTL)
	}
}

func TestGroupSizeForTier(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		tier domain.Tier
		want int
	}{
		{"free はデフォルトで1段落", DefaultConfig(), domain.TierFree, 1},
		{"paid はデフォルトで2段落", DefaultConfig(), domain.TierPaid, 2},
		{"設定値が優先されること", Config{PaidGroupSize: 4}, domain.TierPaid, 4},
		{"0 以下ならデフォルトに戻ること", Config{FreeGroupSize: 0}, domain.TierFree, DefaultFreeGroupSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GroupSizeForTier(tt.tier); got != tt.want {
				t.Errorf("期待値 %d, 実際の値 %d", tt.want, got)
			}
		})
	}
}
