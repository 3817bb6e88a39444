package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies an adapter failure for the orchestrator's tier walk.
type ErrorKind string

const (
	// ErrUnsupported means the provider cannot handle this language pair.
	ErrUnsupported ErrorKind = "unsupported"
	// ErrTransient means the attempt may succeed if retried (timeout, rate
	// limit, upstream 5xx).
	ErrTransient ErrorKind = "transient"
	// ErrPermanent means retrying this tier is pointless for this request
	// (other 4xx, malformed response, exhausted quota or budget).
	ErrPermanent ErrorKind = "permanent"
	// ErrCancelled means the request context was cancelled or timed out.
	ErrCancelled ErrorKind = "cancelled"
)

// Machine-readable reasons carried by ProviderError.
const (
	FailRateLimited     = "rate_limited"
	FailQuotaExhausted  = "quota_exhausted"
	FailBudgetExhausted = "budget_exhausted"
	FailTextTooLong     = "text_too_long"
	FailTimeout         = "timeout"
	FailBadResponse     = "bad_response"
	FailUpstreamStatus  = "upstream_status"
	FailUnsupportedPair = "unsupported_pair"
	FailContext         = "context"
	FailNetwork         = "network"
)

// ProviderError is the structured failure an adapter returns. The
// orchestrator switches on Kind to decide between skip, retry, and abort.
type ProviderError struct {
	Provider ProviderID
	Kind     ErrorKind
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider: %s (%s): %v", e.Provider, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s provider: %s (%s)", e.Provider, e.Kind, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider ProviderID, kind ErrorKind, reason string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Reason: reason, Err: err}
}

// asProviderError normalizes any adapter error into a ProviderError.
// Unclassified errors count as transient so the chain can fall through.
func asProviderError(provider ProviderID, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return newProviderError(provider, ErrTransient, FailNetwork, err)
}

// classifyTransport maps an HTTP transport error. The caller's context
// decides between cancellation and a retryable timeout: a dead parent
// context is a cancellation even when the wire error looks like a timeout.
func classifyTransport(provider ProviderID, ctx context.Context, err error) *ProviderError {
	if ctx.Err() != nil {
		return newProviderError(provider, ErrCancelled, FailContext, ctx.Err())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newProviderError(provider, ErrTransient, FailTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newProviderError(provider, ErrTransient, FailTimeout, err)
	}
	return newProviderError(provider, ErrTransient, FailNetwork, err)
}

// classifyStatus maps a non-2xx upstream status. Provider-specific statuses
// (DeepL's 456, MyMemory's in-body codes) are handled by the adapters before
// falling back to this.
func classifyStatus(provider ProviderID, status int, body string) *ProviderError {
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return newProviderError(provider, ErrTransient, FailRateLimited, err)
	case status >= 500:
		return newProviderError(provider, ErrTransient, FailUpstreamStatus, err)
	default:
		return newProviderError(provider, ErrPermanent, FailUpstreamStatus, err)
	}
}
