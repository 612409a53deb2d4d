package domain

// ImageHandle は生成済み画像への不透明な参照です。
// 実体のバイト列は asset.Vault が保持します。
type ImageHandle string

// ImageStatus は1シーン分の画像生成ステータスです。
type ImageStatus string

const (
	StatusIdle    ImageStatus = "idle"
	StatusLoading ImageStatus = "loading"
	StatusDone    ImageStatus = "done"
	StatusError   ImageStatus = "error"
)

// ImageState はシーンごとの画像生成状態を表すタグ付き共用体です。
// Handle は StatusDone のときのみ、Message は StatusError のときのみ意味を持ちます。
type ImageState struct {
	Status  ImageStatus `json:"status"`
	Handle  ImageHandle `json:"handle,omitempty"`
	Message string      `json:"error,omitempty"`
}

// Idle は未着手の状態を返します。
func Idle() ImageState { return ImageState{Status: StatusIdle} }

// Loading はリクエスト進行中の状態を返します。
func Loading() ImageState { return ImageState{Status: StatusLoading} }

// Done は生成完了の状態を返します。
func Done(h ImageHandle) ImageState { return ImageState{Status: StatusDone, Handle: h} }

// Failed は生成失敗の状態を返します。
func Failed(message string) ImageState { return ImageState{Status: StatusError, Message: message} }

func (s ImageState) IsLoading() bool { return s.Status == StatusLoading }

func (s ImageState) IsDone() bool { return s.Status == StatusDone && s.Handle != "" }

func (s ImageState) IsError() bool { return s.Status == StatusError }

// IsTerminal は状態が Done または Error のいずれかであるかを返します。
func (s ImageState) IsTerminal() bool {
	return s.Status == StatusDone || s.Status == StatusError
}
