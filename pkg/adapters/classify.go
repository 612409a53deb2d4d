package adapters

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"google.golang.org/genai"
)

const (
	invalidKeyMarker      = "API key not valid"
	entityNotFoundMarker  = "Requested entity was not found"
	resourceExhaustedCode = "RESOURCE_EXHAUSTED"
)

// ClassifyError は外部サービスのエラーを GenerationError に分類します。
// 既に GenerationError の場合はそのまま返します。
func ClassifyError(err error) *domain.GenerationError {
	if err == nil {
		return nil
	}
	if ge, ok := domain.AsGenerationError(err); ok {
		return ge
	}

	code, status, message := apiErrorDetail(err)
	text := err.Error()

	switch {
	case strings.Contains(text, invalidKeyMarker) || strings.Contains(message, invalidKeyMarker):
		return domain.NewGenerationError(domain.KindInvalidCredential, domain.MessageInvalidCredential, err)
	case strings.Contains(text, entityNotFoundMarker) || strings.Contains(message, entityNotFoundMarker):
		return domain.NewGenerationError(domain.KindCredentialRevoked, domain.MessageCredentialRevoked, err)
	case code == http.StatusBadRequest && mentionsAPIKey(message):
		return domain.NewGenerationError(domain.KindInvalidCredential, domain.MessageInvalidCredential, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.NewGenerationError(domain.KindInvalidCredential, domain.MessageInvalidCredential, err)
	case code == http.StatusNotFound:
		return domain.NewGenerationError(domain.KindCredentialRevoked, domain.MessageCredentialRevoked, err)
	case code == http.StatusTooManyRequests || status == resourceExhaustedCode || strings.Contains(text, resourceExhaustedCode):
		return domain.NewGenerationError(domain.KindRateLimited, domain.MessageServiceFailure, err)
	default:
		return domain.NewGenerationError(domain.KindServiceFailure, domain.MessageServiceFailure, err)
	}
}

// apiErrorDetail は genai.APIError からステータスコードなどを取り出します。
func apiErrorDetail(err error) (int, string, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	}
	return 0, "", ""
}

func mentionsAPIKey(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "api key") || strings.Contains(m, "api_key")
}
