package store

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Epoch はシーン集合の世代番号です。新しい台本が投入されるたびに増加します。
type Epoch uint64

// StateListener は状態が書き換わるたびに呼ばれるコールバックです。
// ロックの外で呼ばれます。
type StateListener func(epoch Epoch, sceneID string, state domain.ImageState)

// ImageStateMap はシーン識別子から画像生成状態へのマップです。
// すべての書き込みはエポックで検証され、古いエポックの書き込みは破棄されます。
type ImageStateMap struct {
	mu        sync.RWMutex
	epoch     Epoch
	states    map[string]domain.ImageState
	listeners []StateListener
}

// NewImageStateMap はエポック 0 の空のマップを作成します。
func NewImageStateMap() *ImageStateMap {
	return &ImageStateMap{states: make(map[string]domain.ImageState)}
}

// Subscribe は状態変化のリスナーを登録します。
func (m *ImageStateMap) Subscribe(l StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Epoch は現在のエポックを返します。
func (m *ImageStateMap) Epoch() Epoch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Reset はすべての状態を破棄してエポックを進め、新しいエポックを返します。
func (m *ImageStateMap) Reset() Epoch {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.states = make(map[string]domain.ImageState)
	return m.epoch
}

// Set は epoch が現在のエポックと一致する場合のみ状態を書き込みます。
// 書き込まれたかどうかを返します。
func (m *ImageStateMap) Set(epoch Epoch, sceneID string, state domain.ImageState) bool {
	m.mu.Lock()
	if epoch != m.epoch {
		current := m.epoch
		m.mu.Unlock()
		slog.Debug("古いエポックの結果を破棄しました",
			"scene_id", sceneID,
			"epoch", epoch,
			"current_epoch", current,
			"status", state.Status,
		)
		return false
	}
	m.states[sceneID] = state
	listeners := m.listeners
	m.mu.Unlock()

	for _, l := range listeners {
		l(epoch, sceneID, state)
	}
	return true
}

// SetAll は複数シーンへ同じ状態を一括で書き込みます。
func (m *ImageStateMap) SetAll(epoch Epoch, sceneIDs []string, state domain.ImageState) bool {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		slog.Debug("古いエポックの一括更新を破棄しました", "epoch", epoch, "count", len(sceneIDs))
		return false
	}
	for _, id := range sceneIDs {
		m.states[id] = state
	}
	listeners := m.listeners
	m.mu.Unlock()

	for _, id := range sceneIDs {
		for _, l := range listeners {
			l(epoch, id, state)
		}
	}
	return true
}

// Get はシーンの状態を返します。未登録の場合は Idle を返します。
func (m *ImageStateMap) Get(sceneID string) domain.ImageState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.states[sceneID]; ok {
		return st
	}
	return domain.Idle()
}

// Has は現在のエポックでシーンの状態が登録されているかを返します。
func (m *ImageStateMap) Has(sceneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[sceneID]
	return ok
}

// HasAny は指定したシーンのいずれかに状態が登録されているかを返します。
func (m *ImageStateMap) HasAny(sceneIDs []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range sceneIDs {
		if _, ok := m.states[id]; ok {
			return true
		}
	}
	return false
}

// Snapshot は現在のエポックと状態のコピーを返します。
func (m *ImageStateMap) Snapshot() (Epoch, map[string]domain.ImageState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch, maps.Clone(m.states)
}
