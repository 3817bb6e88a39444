package clients

import (
	"context"
	"time"
)

// ProviderID identifies a translation tier
type ProviderID string

const (
	ProviderPremium ProviderID = "premium"
	ProviderFree    ProviderID = "free"
	ProviderBroad   ProviderID = "broad"
)

// Reason codes carried in ResultMeta when a result has no translated text
// (and for no-op requests that echo the original).
const (
	ReasonNoTranslationNeeded = "no_translation_needed"
	ReasonNeedsTarget         = "needs_target"
	ReasonUnknownLanguage     = "unknown_language"
	ReasonUnsupportedTarget   = "unsupported_target"
	ReasonAllProvidersFailed  = "all_providers_failed"
	ReasonCancelled           = "cancelled"
)

// TranslationProvider defines the interface that all translation tiers must implement
type TranslationProvider interface {
	// Name returns the tier identifier
	Name() ProviderID

	// Priority returns the tier's priority (lower = higher priority)
	Priority() int

	// IsConfigured returns true if the provider is properly configured
	IsConfigured() bool

	// IsHealthy checks if the provider is currently usable
	IsHealthy(ctx context.Context) bool

	// SupportsTarget checks if the provider can translate into targetLang
	SupportsTarget(targetLang string) bool

	// DetectsSource returns true if the backend can infer the source
	// language itself; otherwise the caller must supply a concrete source
	DetectsSource() bool

	// Translate translates text into targetLang. sourceLang may be empty
	// when the provider detects the source itself. Failures are returned
	// as *ProviderError.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (*TranslationResult, error)
}

// ResultMeta is the closed set of annotations a result can carry.
type ResultMeta struct {
	Reason             string   `json:"reason,omitempty"`
	CacheHit           bool     `json:"cache_hit,omitempty"`
	Attempted          []string `json:"attempted,omitempty"`
	ConfidenceEstimate float64  `json:"confidence_estimate,omitempty"`
}

// TranslationResult represents the outcome of a translation request. Text is
// set when translation succeeded (or the original was echoed); otherwise
// Meta.Reason explains why there is no text.
type TranslationResult struct {
	Text       string        `json:"text"`
	SourceLang string        `json:"source_lang"`
	TargetLang string        `json:"target_lang"`
	Provider   ProviderID    `json:"provider,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Latency    time.Duration `json:"latency,omitempty"`
	Meta       ResultMeta    `json:"meta"`
}

// Failed reports whether the result describes a failure rather than a
// translation or an intentional echo.
func (r *TranslationResult) Failed() bool {
	switch r.Meta.Reason {
	case ReasonNeedsTarget, ReasonUnknownLanguage, ReasonUnsupportedTarget,
		ReasonAllProvidersFailed, ReasonCancelled:
		return true
	}
	return false
}

// ProviderHealth tracks the health status of a provider
type ProviderHealth struct {
	Provider     ProviderID `json:"provider"`
	Healthy      bool       `json:"healthy"`
	LastChecked  time.Time  `json:"last_checked"`
	FailureCount int        `json:"failure_count"`
	LastError    string     `json:"last_error,omitempty"`
	AvgLatencyMs float64    `json:"avg_latency_ms"`
}

// ProviderMetrics tracks usage metrics for a provider
type ProviderMetrics struct {
	Provider        ProviderID `json:"provider"`
	TotalRequests   int64      `json:"total_requests"`
	SuccessfulCount int64      `json:"successful_count"`
	FailedCount     int64      `json:"failed_count"`
	TotalLatencyMs  int64      `json:"total_latency_ms"`
	CharactersCount int64      `json:"characters_count"`
}
