package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/raphaelgruber/campusdesk/internal/apperr"
)

// User-facing messages per failure kind.
const (
	msgQuotaExceeded = "Chat provider quota exceeded. Please add credits to your provider account."
	msgProviderAuth  = "Invalid chat provider API key"
	msgProviderError = "Error communicating with chat provider"
)

// quotaMarkers name an exhausted allowance. Transient rate limits are not
// quota errors.
var quotaMarkers = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"quota exceeded",
	"resource_exhausted",
	"credit balance",
	"billing_not_active",
}

var authMarkers = []string{
	"invalid_api_key",
	"invalid api key",
	"incorrect api key",
	"api key not valid",
	"authentication",
	"unauthorized",
	"permission_denied",
}

// authStatus matches 401/403 only where a client library reports an HTTP
// status, e.g. "status code: 401" or "HTTP 403".
var authStatus = regexp.MustCompile(`(?i)\b(?:status code|status|http)[ :]+40[13]\b`)

// Classify maps a provider error onto the apperr taxonomy: quota exhaustion,
// rejected credentials, or a generic provider failure. Typed errors are
// inspected first; message heuristics only apply to untyped errors.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeProviderFailed, msgProviderError, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classifyAWSCode(apiErr.ErrorCode(), err)
	}

	var gErr *GeminiError
	if errors.As(err, &gErr) {
		return classifyGemini(gErr, err)
	}

	switch {
	case isQuotaError(err):
		return apperr.Wrap(apperr.CodeQuotaExceeded, msgQuotaExceeded, err)
	case isAuthError(err):
		return apperr.Wrap(apperr.CodeProviderAuth, msgProviderAuth, err)
	default:
		return apperr.Wrap(apperr.CodeProviderFailed, msgProviderError, err)
	}
}

func classifyAWSCode(code string, err error) error {
	switch code {
	case "AccessDeniedException", "UnrecognizedClientException", "InvalidSignatureException",
		"ExpiredTokenException", "IncompleteSignature":
		return apperr.Wrap(apperr.CodeProviderAuth, msgProviderAuth, err)
	case "ServiceQuotaExceededException":
		return apperr.Wrap(apperr.CodeQuotaExceeded, msgQuotaExceeded, err)
	default:
		return apperr.Wrap(apperr.CodeProviderFailed, msgProviderError, err)
	}
}

func classifyGemini(gErr *GeminiError, err error) error {
	switch {
	case gErr.StatusCode == 429 || gErr.Status == "RESOURCE_EXHAUSTED":
		return apperr.Wrap(apperr.CodeQuotaExceeded, msgQuotaExceeded, err)
	case gErr.StatusCode == 401 || gErr.StatusCode == 403 ||
		gErr.Status == "UNAUTHENTICATED" || gErr.Status == "PERMISSION_DENIED" ||
		strings.Contains(strings.ToLower(gErr.Message), "api key not valid"):
		return apperr.Wrap(apperr.CodeProviderAuth, msgProviderAuth, err)
	default:
		return apperr.Wrap(apperr.CodeProviderFailed, msgProviderError, err)
	}
}

func containsAny(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	return err != nil && containsAny(err, quotaMarkers)
}

func isAuthError(err error) bool {
	return err != nil && (containsAny(err, authMarkers) || authStatus.MatchString(err.Error()))
}
