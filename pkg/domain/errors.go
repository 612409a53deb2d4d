package domain

import (
	"errors"
	"fmt"
)

// ErrorKind は外部サービス呼び出しおよびローカル処理の失敗分類です。
type ErrorKind string

const (
	KindInvalidCredential        ErrorKind = "invalid_credential"
	KindCredentialRevoked        ErrorKind = "credential_revoked"
	KindRateLimited              ErrorKind = "rate_limited"
	KindServiceFailure           ErrorKind = "service_failure"
	KindNoImageProduced          ErrorKind = "no_image_produced"
	KindLocalSegmentationFailure ErrorKind = "local_segmentation_failure"
)

// ユーザーに提示するメッセージ
const (
	MessageInvalidCredential = "The selected API key is not valid. Please select a different key."
	MessageCredentialRevoked = "Your API key is invalid or has been revoked. Please select a new one."
	MessageServiceFailure    = "Failed to generate image due to an API error."
	MessageNoImageProduced   = "No image was generated."
	MessageSegmentation      = "Failed to process the script into shots."
)

var (
	// ErrCredentialNeeded は有効な認証情報がないためバッチを開始できないことを示します。
	ErrCredentialNeeded = errors.New("有効な認証情報が選択されていません")
	// ErrBatchInFlight は別のバッチが実行中であることを示します。
	ErrBatchInFlight = errors.New("バッチ生成が既に実行中です")
	// ErrBatchAlreadyRun は同じシーン集合に対してバッチが既に実行済みであることを示します。
	ErrBatchAlreadyRun = errors.New("このシーン集合のバッチ生成は実行済みです")
	// ErrSceneNotFound は指定されたシーンが存在しないことを示します。
	ErrSceneNotFound = errors.New("シーンが見つかりません")
	// ErrStaleEpoch は結果が古いエポックに属するため破棄されたことを示します。
	ErrStaleEpoch = errors.New("古いエポックの結果です")
	// ErrImageNotFound はハンドルに対応する画像がセッション内に残っていないことを示します。
	ErrImageNotFound = errors.New("画像が見つかりません")
	// ErrInvalidGroupSize は段落のグループサイズが1未満であることを示します。
	ErrInvalidGroupSize = errors.New("グループサイズは1以上である必要があります")
)

// GenerationError は画像の生成・編集の失敗を表します。
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewGenerationError は分類とユーザー向けメッセージ、原因エラーから GenerationError を作成します。
func NewGenerationError(kind ErrorKind, message string, cause error) *GenerationError {
	return &GenerationError{Kind: kind, Message: message, Err: cause}
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsCredentialFailure は認証情報の再選択が必要な失敗かどうかを返します。
func (e *GenerationError) IsCredentialFailure() bool {
	return e.Kind == KindInvalidCredential || e.Kind == KindCredentialRevoked
}

// AsGenerationError は err から GenerationError を取り出します。
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsCredentialError は err が認証情報の失敗に起因するかを判定します。
func IsCredentialError(err error) bool {
	ge, ok := AsGenerationError(err)
	return ok && ge.IsCredentialFailure()
}

// UserMessage は状態マップやトップレベルのエラー表示に使うメッセージを返します。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if ge, ok := AsGenerationError(err); ok && ge.Message != "" {
		return ge.Message
	}
	return err.Error()
}
