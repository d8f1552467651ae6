package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// reasonForStatus maps an HTTP status and OpenAI error code to a provider reason.
func reasonForStatus(status int, code string) domain.ProviderReason {
	switch {
	case code == "insufficient_quota":
		return domain.ReasonQuotaExceeded
	case status == http.StatusTooManyRequests:
		return domain.ReasonRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return domain.ReasonTimeout
	}
	return domain.ReasonUpstream
}

// reasonForError classifies a transport or client library error.
// langchaingo only exposes the upstream status inside the error text.
func reasonForError(err error) domain.ProviderReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient_quota"), strings.Contains(msg, "exceeded your current quota"):
		return domain.ReasonQuotaExceeded
	case strings.Contains(msg, "status code: 429"), strings.Contains(msg, "rate limit"):
		return domain.ReasonRateLimited
	case strings.Contains(msg, "status code: 408"), strings.Contains(msg, "status code: 504"):
		return domain.ReasonTimeout
	}
	return domain.ReasonUpstream
}

// asProviderError keeps an existing ProviderError or classifies err with wrap.
func asProviderError(err error, wrap func(domain.ProviderReason, error) *domain.ProviderError) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return wrap(reasonForError(err), err)
}
