package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// googleWebMaxChars is the practical URL-length ceiling for the endpoint.
// Longer texts are truncated rather than rejected: the broad tier is the
// last resort and a shortened alert beats no alert.
const googleWebMaxChars = 1800

// GoogleWebClient is the broad tier. It talks to the unofficial web
// translation endpoint: widest language coverage, no key, best effort.
type GoogleWebClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Entry
	targets    map[string]struct{}

	// Health tracking
	healthMu     sync.RWMutex
	healthy      bool
	lastHealthy  time.Time
	failureCount int
}

// NewGoogleWebClient creates the broad adapter. targets should be every
// code in the directory.
func NewGoogleWebClient(baseURL string, timeout time.Duration, targets map[string]struct{}, logger *logrus.Entry) *GoogleWebClient {
	return &GoogleWebClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  logger,
		targets: targets,
		healthy: true,
	}
}

// Name returns the tier identifier
func (c *GoogleWebClient) Name() ProviderID {
	return ProviderBroad
}

// Priority returns the tier priority (3 = last resort)
func (c *GoogleWebClient) Priority() int {
	return 3
}

// IsConfigured returns true when a base URL is set
func (c *GoogleWebClient) IsConfigured() bool {
	return c.baseURL != ""
}

// IsHealthy checks if the provider is currently healthy
func (c *GoogleWebClient) IsHealthy(ctx context.Context) bool {
	c.healthMu.RLock()
	healthy := c.healthy
	lastHealthy := c.lastHealthy
	failureCount := c.failureCount
	c.healthMu.RUnlock()

	if !healthy && failureCount > 0 {
		backoffDuration := time.Duration(failureCount) * 10 * time.Second
		if backoffDuration > 2*time.Minute {
			backoffDuration = 2 * time.Minute
		}
		if time.Since(lastHealthy) < backoffDuration {
			return false
		}
		return true
	}

	return healthy
}

// SupportsTarget checks the directory-wide capability set
func (c *GoogleWebClient) SupportsTarget(targetLang string) bool {
	_, ok := c.targets[strings.ToLower(targetLang)]
	return ok
}

// DetectsSource returns true: the endpoint accepts sl=auto
func (c *GoogleWebClient) DetectsSource() bool {
	return true
}

func (c *GoogleWebClient) markHealthy() {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = true
	c.lastHealthy = time.Now()
	c.failureCount = 0
}

func (c *GoogleWebClient) markUnhealthy(reason string) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = false
	c.failureCount++
	c.logger.WithFields(logrus.Fields{
		"reason":        reason,
		"failure_count": c.failureCount,
	}).Warn("Broad translation endpoint marked unhealthy")
}

// Translate translates text into targetLang (implements TranslationProvider).
// An empty sourceLang is sent as sl=auto.
func (c *GoogleWebClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (*TranslationResult, error) {
	start := time.Now()

	if !c.SupportsTarget(targetLang) {
		return nil, newProviderError(ProviderBroad, ErrUnsupported, FailUnsupportedPair,
			fmt.Errorf("target %q not in directory", targetLang))
	}
	text = truncateRunes(text, googleWebMaxChars)

	if sourceLang == "" || sourceLang == "unknown" {
		sourceLang = "auto"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, newProviderError(ProviderBroad, ErrCancelled, FailContext, err)
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("dt", "t")
	params.Set("sl", strings.ToLower(sourceLang))
	params.Set("tl", strings.ToLower(targetLang))
	params.Set("q", text)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/translate_a/single?"+params.Encode(), nil)
	if err != nil {
		return nil, newProviderError(ProviderBroad, ErrPermanent, FailBadResponse,
			fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; polyglot-service/1.0)")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		perr := classifyTransport(ProviderBroad, ctx, err)
		if perr.Kind == ErrTransient {
			c.markUnhealthy(perr.Reason)
		}
		return nil, perr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		perr := classifyStatus(ProviderBroad, resp.StatusCode, string(bodyBytes))
		c.markUnhealthy(perr.Reason)
		return nil, perr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError(ProviderBroad, ErrTransient, FailNetwork,
			fmt.Errorf("read response: %w", err))
	}

	translated, detected, err := parseGoogleWebResponse(data)
	if err != nil {
		return nil, newProviderError(ProviderBroad, ErrPermanent, FailBadResponse, err)
	}

	c.markHealthy()

	if detected == "" {
		if sourceLang == "auto" {
			detected = "en"
		} else {
			detected = sourceLang
		}
	}

	return &TranslationResult{
		Text:       translated,
		SourceLang: strings.ToLower(detected),
		TargetLang: strings.ToLower(targetLang),
		Provider:   ProviderBroad,
		Latency:    time.Since(start),
	}, nil
}

// parseGoogleWebResponse unpacks the endpoint's undocumented nested-array
// payload: [[["<chunk>","<original>",...],...],null,"<detected>",...]. The
// shape is kept out of the rest of the codebase on purpose.
func parseGoogleWebResponse(data []byte) (translated, detected string, err error) {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if len(raw) == 0 {
		return "", "", fmt.Errorf("empty response array")
	}

	segments, ok := raw[0].([]interface{})
	if !ok {
		return "", "", fmt.Errorf("unexpected response shape")
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if chunk, ok := parts[0].(string); ok {
			sb.WriteString(chunk)
		}
	}
	if sb.Len() == 0 {
		return "", "", fmt.Errorf("no translated segments")
	}

	if len(raw) > 2 {
		if lang, ok := raw[2].(string); ok {
			detected = lang
		}
	}

	return sb.String(), detected, nil
}

// truncateRunes shortens s to at most n runes without splitting one.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
