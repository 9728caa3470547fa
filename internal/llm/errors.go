package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// APIError is a non-2xx response from a provider. The status code and
// body drive the fallback classification below.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// billingKeywords mark errors that indicate account/billing trouble on
// the primary provider regardless of status code. These always warrant
// trying the secondary provider.
var billingKeywords = []string{"credit", "balance", "billing", "payment", "insufficient"}

// FallbackEligible reports whether err should trigger a switch to the
// secondary provider. Eligible: auth/billing failures (401/402/403),
// rate limits (429), request timeouts (408), server errors (5xx),
// context deadline expiry, and transport-level failures. Terminal
// (malformed request, unsupported content: 400/404/422 and other 4xx)
// errors are not eligible: the same request would fail identically on
// the secondary provider.
func FallbackEligible(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401, apiErr.StatusCode == 402, apiErr.StatusCode == 403:
			return true
		case apiErr.StatusCode == 408, apiErr.StatusCode == 429:
			return true
		case apiErr.StatusCode >= 500:
			return true
		}
		body := strings.ToLower(apiErr.Body)
		for _, kw := range billingKeywords {
			if strings.Contains(body, kw) {
				return true
			}
		}
		return false
	}

	// A provider timeout is treated as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Transport-level failures (connection refused, DNS, reset) never
	// reached the provider and are safe to retry elsewhere.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
