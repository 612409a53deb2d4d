package domain

import "strings"

// Tier はアカウント種別です。シーンあたりの段落数のポリシーを決めます。
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// ParseTier は文字列を Tier に変換します。未知の値は TierFree として扱います。
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPaid:
		return TierPaid
	default:
		return TierFree
	}
}
