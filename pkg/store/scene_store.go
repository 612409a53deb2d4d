package store

import (
	"fmt"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// SceneStore はシーンを順序付きで保持し、識別子で引けるようにするインメモリストアです。
type SceneStore struct {
	mu     sync.RWMutex
	order  []string
	scenes map[string]domain.Scene
}

// NewSceneStore は空の SceneStore を作成します。
func NewSceneStore() *SceneStore {
	return &SceneStore{scenes: make(map[string]domain.Scene)}
}

// Replace は保持しているシーンをすべて破棄し、新しいシーン列で置き換えます。
func (s *SceneStore) Replace(scenes domain.Scenes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(scenes))
	s.scenes = make(map[string]domain.Scene, len(scenes))
	for _, sc := range scenes {
		if _, dup := s.scenes[sc.ID]; !dup {
			s.order = append(s.order, sc.ID)
		}
		s.scenes[sc.ID] = sc
	}
}

// Clear はすべてのシーンを破棄します。
func (s *SceneStore) Clear() {
	s.Replace(nil)
}

// Get は識別子に一致するシーンを返します。
func (s *SceneStore) Get(id string) (domain.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenes[id]
	if !ok {
		return domain.Scene{}, fmt.Errorf("%q: %w", id, domain.ErrSceneNotFound)
	}
	return sc, nil
}

// List は現在のシーン列のコピーを順序通りに返します。
func (s *SceneStore) List() domain.Scenes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.Scenes, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.scenes[id])
	}
	return out
}

func (s *SceneStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// UpdateInstruction はシーンの編集指示を置き換えます。画像状態には影響しません。
func (s *SceneStore) UpdateInstruction(id, text string) error {
	return s.update(id, func(sc *domain.Scene) { sc.EditInstruction = text })
}

// UpdateDescription はシーンの生成用描写を置き換えます。画像状態には影響しません。
func (s *SceneStore) UpdateDescription(id, text string) error {
	return s.update(id, func(sc *domain.Scene) { sc.VisualDescription = text })
}

func (s *SceneStore) update(id string, fn func(*domain.Scene)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenes[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrSceneNotFound)
	}
	fn(&sc)
	s.scenes[id] = sc
	return nil
}
