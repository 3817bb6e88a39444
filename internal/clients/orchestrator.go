package clients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"polyglot-service/internal/cache"
	"polyglot-service/internal/languages"
)

// transientRetryDelay is the pause before the single retry a tier gets
// after a transient failure.
const transientRetryDelay = 250 * time.Millisecond

// TranslationOrchestrator walks the provider tiers in a fixed order:
//  1. premium (highest quality, narrowest coverage)
//  2. free (wide coverage, daily budget)
//  3. broad (whole directory, best effort)
//
// The orchestrator:
//   - Consults the cache exactly once, before any provider call
//   - Skips tiers that don't cover the target or are in a health backoff
//   - Substitutes a script-based source guess for providers that cannot
//     detect the source themselves
//   - Retries a tier once after a transient failure, then falls through
//   - Never returns an error: the result always explains itself via Meta
//   - Tracks health and metrics per provider
type TranslationOrchestrator struct {
	providers []TranslationProvider
	cache     cache.Store
	logger    *logrus.Entry

	// Metrics tracking
	metrics   map[ProviderID]*ProviderMetrics
	metricsMu sync.RWMutex

	// Health tracking
	health   map[ProviderID]*ProviderHealth
	healthMu sync.RWMutex
}

// NewTranslationOrchestrator creates an orchestrator over the given
// providers, sorted by priority. Nil and unconfigured providers are
// filtered out. store may be nil to disable caching.
func NewTranslationOrchestrator(providers []TranslationProvider, store cache.Store, logger *logrus.Entry) *TranslationOrchestrator {
	configured := make([]TranslationProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.IsConfigured() {
			configured = append(configured, p)
		}
	}

	sort.Slice(configured, func(i, j int) bool {
		return configured[i].Priority() < configured[j].Priority()
	})

	o := &TranslationOrchestrator{
		providers: configured,
		cache:     store,
		logger:    logger,
		metrics:   make(map[ProviderID]*ProviderMetrics),
		health:    make(map[ProviderID]*ProviderHealth),
	}

	for _, p := range configured {
		o.metrics[p.Name()] = &ProviderMetrics{Provider: p.Name()}
		o.health[p.Name()] = &ProviderHealth{
			Provider:    p.Name(),
			Healthy:     true,
			LastChecked: time.Now(),
		}
	}

	names := make([]string, len(configured))
	for i, p := range configured {
		names[i] = string(p.Name())
	}
	logger.WithField("providers", names).Info("Translation orchestrator initialized with tier chain")

	return o
}

// Translate translates text into targetLang, walking the tier chain.
// sourceHint may be empty or "auto" when the caller doesn't know the
// source. targetLang must be a concrete canonical code; resolving targets
// is the caller's job.
func (o *TranslationOrchestrator) Translate(ctx context.Context, text, sourceHint, targetLang string) *TranslationResult {
	start := time.Now()
	result := o.run(ctx, text, sourceHint, targetLang)
	result.Latency = time.Since(start)

	outcome := result.Meta.Reason
	if outcome == "" {
		outcome = "translated"
	}
	o.logger.WithFields(logrus.Fields{
		"target":      targetLang,
		"source_hint": sourceHint,
		"provider":    string(result.Provider),
		"attempted":   result.Meta.Attempted,
		"cache_hit":   result.Meta.CacheHit,
		"latency_ms":  result.Latency.Milliseconds(),
		"outcome":     outcome,
	}).Debug("Translation request completed")

	return result
}

func (o *TranslationOrchestrator) run(ctx context.Context, text, sourceHint, targetLang string) *TranslationResult {
	sourceHint = strings.ToLower(strings.TrimSpace(sourceHint))
	targetLang = strings.ToLower(strings.TrimSpace(targetLang))
	srcKnown := sourceHint != "" && sourceHint != languages.CodeAuto && sourceHint != languages.CodeUnknown

	if strings.TrimSpace(text) == "" {
		src := sourceHint
		if !srcKnown {
			src = languages.CodeUnknown
		}
		return &TranslationResult{
			SourceLang: src,
			TargetLang: targetLang,
			Meta:       ResultMeta{Reason: ReasonNoTranslationNeeded},
		}
	}

	if srcKnown && sourceHint == targetLang {
		return &TranslationResult{
			Text:       text,
			SourceLang: sourceHint,
			TargetLang: targetLang,
			Meta:       ResultMeta{Reason: ReasonNoTranslationNeeded},
		}
	}

	key := cache.NewKey(text, sourceHint, targetLang)
	if o.cache != nil {
		if hit, ok := o.cache.Get(ctx, key); ok {
			return &TranslationResult{
				Text:       hit.Text,
				SourceLang: hit.SourceLang,
				TargetLang: hit.TargetLang,
				Provider:   ProviderID(hit.Provider),
				Confidence: hit.Confidence,
				Meta:       ResultMeta{CacheHit: true},
			}
		}
	}

	attempted := make([]string, 0, len(o.providers))
	hadCapability := false
	capabilityOnly := true // flips on any failure that isn't a coverage problem

	for _, provider := range o.providers {
		name := provider.Name()

		if !provider.SupportsTarget(targetLang) {
			o.logger.WithFields(logrus.Fields{
				"provider": name,
				"target":   targetLang,
			}).Debug("Provider does not cover target, skipping")
			continue
		}
		hadCapability = true

		if !provider.IsHealthy(ctx) {
			capabilityOnly = false
			o.logger.WithField("provider", name).Debug("Skipping provider in health backoff")
			continue
		}

		attempted = append(attempted, string(name))

		src := sourceHint
		if !srcKnown {
			if provider.DetectsSource() {
				src = ""
			} else {
				src = languages.GuessSource(text)
			}
		}

		result, perr := o.attempt(ctx, provider, text, src, targetLang)
		if perr == nil {
			result.Provider = name
			if o.cache != nil {
				o.cache.Put(ctx, key, cache.CachedTranslation{
					Text:       result.Text,
					SourceLang: result.SourceLang,
					TargetLang: result.TargetLang,
					Provider:   string(name),
					Confidence: result.Confidence,
				})
			}
			return result
		}

		switch perr.Kind {
		case ErrCancelled:
			return &TranslationResult{
				SourceLang: sourceHint,
				TargetLang: targetLang,
				Meta:       ResultMeta{Reason: ReasonCancelled, Attempted: attempted},
			}
		case ErrUnsupported:
			// Coverage disagreement between the pre-check and the
			// adapter's own guard; keeps capabilityOnly intact.
		default:
			capabilityOnly = false
		}
	}

	reason := ReasonAllProvidersFailed
	if !hadCapability || capabilityOnly {
		reason = ReasonUnsupportedTarget
	}
	return &TranslationResult{
		SourceLang: sourceHint,
		TargetLang: targetLang,
		Meta:       ResultMeta{Reason: reason, Attempted: attempted},
	}
}

// attempt calls one provider, retrying once after a transient failure.
func (o *TranslationOrchestrator) attempt(ctx context.Context, provider TranslationProvider, text, sourceLang, targetLang string) (*TranslationResult, *ProviderError) {
	result, perr := o.call(ctx, provider, text, sourceLang, targetLang)
	if perr != nil && perr.Kind == ErrTransient {
		select {
		case <-ctx.Done():
			return nil, newProviderError(provider.Name(), ErrCancelled, FailContext, ctx.Err())
		case <-time.After(transientRetryDelay):
		}
		result, perr = o.call(ctx, provider, text, sourceLang, targetLang)
	}
	return result, perr
}

func (o *TranslationOrchestrator) call(ctx context.Context, provider TranslationProvider, text, sourceLang, targetLang string) (*TranslationResult, *ProviderError) {
	name := provider.Name()
	start := time.Now()
	result, err := provider.Translate(ctx, text, sourceLang, targetLang)
	latency := time.Since(start)

	if err != nil {
		perr := asProviderError(name, err)
		o.recordFailure(name, perr, latency)
		o.logger.WithFields(logrus.Fields{
			"provider": name,
			"kind":     string(perr.Kind),
			"reason":   perr.Reason,
			"latency":  latency.String(),
		}).Warn("Translation attempt failed")
		return nil, perr
	}

	o.recordSuccess(name, int64(len(text)), latency)
	return result, nil
}

// recordSuccess records a successful translation
func (o *TranslationOrchestrator) recordSuccess(provider ProviderID, chars int64, latency time.Duration) {
	o.metricsMu.Lock()
	defer o.metricsMu.Unlock()

	if m, ok := o.metrics[provider]; ok {
		m.TotalRequests++
		m.SuccessfulCount++
		m.TotalLatencyMs += latency.Milliseconds()
		m.CharactersCount += chars
	}

	o.healthMu.Lock()
	defer o.healthMu.Unlock()

	if h, ok := o.health[provider]; ok {
		h.Healthy = true
		h.LastChecked = time.Now()
		h.FailureCount = 0
		h.LastError = ""
		if succeeded := float64(o.metrics[provider].SuccessfulCount); succeeded > 0 {
			h.AvgLatencyMs = float64(o.metrics[provider].TotalLatencyMs) / succeeded
		}
	}
}

// recordFailure records a failed translation attempt. Coverage bounces and
// cancellations don't count against the provider's health streak.
func (o *TranslationOrchestrator) recordFailure(provider ProviderID, perr *ProviderError, latency time.Duration) {
	o.metricsMu.Lock()
	defer o.metricsMu.Unlock()

	if m, ok := o.metrics[provider]; ok {
		m.TotalRequests++
		m.FailedCount++
		m.TotalLatencyMs += latency.Milliseconds()
	}

	if perr.Kind == ErrUnsupported || perr.Kind == ErrCancelled {
		return
	}

	o.healthMu.Lock()
	defer o.healthMu.Unlock()

	if h, ok := o.health[provider]; ok {
		h.FailureCount++
		h.LastError = perr.Error()
		h.LastChecked = time.Now()

		// Mark unhealthy after 3 consecutive failures
		if h.FailureCount >= 3 {
			h.Healthy = false
		}
	}
}

// GetProviders returns the configured tier names in priority order.
func (o *TranslationOrchestrator) GetProviders() []ProviderID {
	names := make([]ProviderID, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// CoversTarget reports whether any configured tier can translate into
// targetLang.
func (o *TranslationOrchestrator) CoversTarget(targetLang string) bool {
	for _, p := range o.providers {
		if p.SupportsTarget(targetLang) {
			return true
		}
	}
	return false
}

// GetProviderHealth returns health status for all providers
func (o *TranslationOrchestrator) GetProviderHealth() map[ProviderID]*ProviderHealth {
	o.healthMu.RLock()
	defer o.healthMu.RUnlock()

	result := make(map[ProviderID]*ProviderHealth)
	for k, v := range o.health {
		copy := *v
		result[k] = &copy
	}
	return result
}

// GetProviderMetrics returns metrics for all providers
func (o *TranslationOrchestrator) GetProviderMetrics() map[ProviderID]*ProviderMetrics {
	o.metricsMu.RLock()
	defer o.metricsMu.RUnlock()

	result := make(map[ProviderID]*ProviderMetrics)
	for k, v := range o.metrics {
		copy := *v
		result[k] = &copy
	}
	return result
}

// RefreshHealth re-evaluates provider health flags.
func (o *TranslationOrchestrator) RefreshHealth(ctx context.Context) {
	for _, p := range o.providers {
		healthy := p.IsHealthy(ctx)

		o.healthMu.Lock()
		if h, ok := o.health[p.Name()]; ok {
			h.Healthy = healthy
			h.LastChecked = time.Now()
		}
		o.healthMu.Unlock()
	}
}
