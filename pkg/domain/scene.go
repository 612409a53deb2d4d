package domain

import (
	"fmt"
	"strings"
)

// ShotIDPrefix はシーン識別子の接頭辞です。
const ShotIDPrefix = "Shot"

// Scene は台本の1区間（ショット）と、その画像生成に使用する入力を保持します。
type Scene struct {
	ID                string `json:"scene_number"`
	OriginalText      string `json:"original_script_snippet"`
	VisualDescription string `json:"visual_description"`
	EditInstruction   string `json:"edit_instruction,omitempty"`
}

// Scenes は順序付きのシーン列です。
type Scenes []Scene

// ShotID は1始まりの連番からシーン識別子を生成します。
// 例: 1 -> "Shot 1"
func ShotID(index int) string {
	return fmt.Sprintf("%s %d", ShotIDPrefix, index)
}

// HasEditInstruction は編集指示が空白以外の文字を含むかどうかを返します。
func (s Scene) HasEditInstruction() bool {
	return strings.TrimSpace(s.EditInstruction) != ""
}

// IDs はシーン列の識別子を順序通りに返します。
func (ss Scenes) IDs() []string {
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	return ids
}

// Find は識別子に一致するシーンを返します。
func (ss Scenes) Find(id string) (Scene, bool) {
	for _, s := range ss {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}
