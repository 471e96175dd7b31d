package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "anthropic status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("anthropic %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("anthropic %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyAnthropicError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableStatus(statusErr.StatusCode) {
			return resilience.Verdict{Retry: true, CountAgainstBreaker: true}
		}
		// Client-side errors (bad key, malformed request) should neither
		// retry nor poison the breaker.
		return resilience.Verdict{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retry: true, CountAgainstBreaker: true}
	}
	return resilience.Verdict{CountAgainstBreaker: true}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529: // anthropic overloaded
		return true
	}
	return false
}

// wrapTemporary marks infrastructure failures as temporary so callers can
// distinguish them from extraction failures.
func wrapTemporary(operation string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.Open(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && isRetryableStatus(statusErr.StatusCode) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
