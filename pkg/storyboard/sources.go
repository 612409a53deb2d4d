package storyboard

import (
	"context"
	"strings"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/shouni/go-utils/envutil"
)

// CredentialSource はバッチ開始前に有効な認証情報が選択済みかを答えます。
type CredentialSource interface {
	HasCredential(ctx context.Context) (bool, error)
}

// CredentialFunc は関数を CredentialSource として扱うためのアダプタです。
type CredentialFunc func(ctx context.Context) (bool, error)

func (f CredentialFunc) HasCredential(ctx context.Context) (bool, error) { return f(ctx) }

// EnvCredentialSource は環境変数に API キーが設定されているかで判定します。
type EnvCredentialSource struct {
	Key string
}

// NewEnvCredentialSource は GEMINI_API_KEY を参照する EnvCredentialSource を返します。
func NewEnvCredentialSource() EnvCredentialSource {
	return EnvCredentialSource{Key: "GEMINI_API_KEY"}
}

func (s EnvCredentialSource) HasCredential(_ context.Context) (bool, error) {
	return strings.TrimSpace(envutil.GetEnv(s.Key, "")) != "", nil
}

// TierSource は現在のアカウント種別と、その変更通知を提供します。
type TierSource interface {
	Current() domain.Tier
	Subscribe(ctx context.Context) <-chan domain.Tier
}

// TierBroadcaster は Set された種別を購読者へ配信する TierSource です。
// 各購読者には最新の値だけが届きます。
type TierBroadcaster struct {
	mu   sync.Mutex
	tier domain.Tier
	subs map[chan domain.Tier]struct{}
}

// NewTierBroadcaster は初期値 initial の TierBroadcaster を作成します。
func NewTierBroadcaster(initial domain.Tier) *TierBroadcaster {
	return &TierBroadcaster{
		tier: initial,
		subs: make(map[chan domain.Tier]struct{}),
	}
}

func (b *TierBroadcaster) Current() domain.Tier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tier
}

// Set は種別を更新し、変化があれば購読者へ通知します。
func (b *TierBroadcaster) Set(t domain.Tier) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t == b.tier {
		return
	}
	b.tier = t
	for ch := range b.subs {
		select {
		case ch <- t:
		default:
			// 未読の古い値を捨てて最新値に置き換える
			select {
			case <-ch:
			default:
			}
			ch <- t
		}
	}
}

// Subscribe は ctx が終了するまで種別の変更を受け取るチャネルを返します。
// ctx の終了後にチャネルは閉じられます。
func (b *TierBroadcaster) Subscribe(ctx context.Context) <-chan domain.Tier {
	ch := make(chan domain.Tier, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}
