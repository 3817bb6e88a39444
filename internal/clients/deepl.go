package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// deepLMaxChars is the local length cap. Longer texts are rejected before
// any HTTP call; DeepL bills by character.
const deepLMaxChars = 4500

// deepLStatusQuotaExceeded is DeepL's non-standard "quota exceeded" status.
const deepLStatusQuotaExceeded = 456

// DeepLClient is the premium tier. Highest quality, narrowest target set,
// requires an API key.
type DeepLClient struct {
	baseURL    string
	apiKey     string
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

// DeepLRequest is the JSON body for POST /v2/translate.
type DeepLRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

// DeepLResponse is the JSON body DeepL returns on success.
type DeepLResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// NewDeepLClient creates the premium adapter. targets is the set of
// canonical codes the tier may translate into, taken from the directory.
func NewDeepLClient(baseURL, apiKey string, timeout time.Duration, targets map[string]struct{}, logger *logrus.Entry) *DeepLClient {
	return &DeepLClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// DeepL allows bursts but sustained traffic should stay polite.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  logger,
		targets: targets,
		healthy: true,
	}
}

// Name returns the tier identifier
func (c *DeepLClient) Name() ProviderID {
	return ProviderPremium
}

// Priority returns the tier priority (1 = highest quality, tried first)
func (c *DeepLClient) Priority() int {
	return 1
}

// IsConfigured returns true when an API key is present
func (c *DeepLClient) IsConfigured() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// IsHealthy checks if the provider is currently healthy
func (c *DeepLClient) IsHealthy(ctx context.Context) bool {
	c.healthMu.RLock()
	healthy := c.healthy
	lastHealthy := c.lastHealthy
	failureCount := c.failureCount
	c.healthMu.RUnlock()

	// If unhealthy, check if enough time has passed for retry
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

// SupportsTarget checks the directory-derived premium capability set
func (c *DeepLClient) SupportsTarget(targetLang string) bool {
	_, ok := c.targets[strings.ToLower(targetLang)]
	return ok
}

// DetectsSource returns true: DeepL infers the source when none is sent
func (c *DeepLClient) DetectsSource() bool {
	return true
}

func (c *DeepLClient) markHealthy() {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = true
	c.lastHealthy = time.Now()
	c.failureCount = 0
}

func (c *DeepLClient) markUnhealthy(reason string) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = false
	c.failureCount++
	c.logger.WithFields(logrus.Fields{
		"reason":        reason,
		"failure_count": c.failureCount,
	}).Warn("DeepL marked unhealthy")
}

// Translate translates text into targetLang (implements TranslationProvider).
// An empty sourceLang asks DeepL to detect the source.
func (c *DeepLClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (*TranslationResult, error) {
	start := time.Now()

	if !c.SupportsTarget(targetLang) {
		return nil, newProviderError(ProviderPremium, ErrUnsupported, FailUnsupportedPair,
			fmt.Errorf("target %q outside premium set", targetLang))
	}
	if utf8.RuneCountInString(text) > deepLMaxChars {
		return nil, newProviderError(ProviderPremium, ErrPermanent, FailTextTooLong,
			fmt.Errorf("text exceeds %d characters", deepLMaxChars))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, newProviderError(ProviderPremium, ErrCancelled, FailContext, err)
	}

	req := DeepLRequest{
		Text:       []string{text},
		TargetLang: strings.ToUpper(targetLang),
	}
	if sourceLang != "" && sourceLang != "auto" {
		req.SourceLang = strings.ToUpper(sourceLang)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newProviderError(ProviderPremium, ErrPermanent, FailBadResponse,
			fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return nil, newProviderError(ProviderPremium, ErrPermanent, FailBadResponse,
			fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		perr := classifyTransport(ProviderPremium, ctx, err)
		if perr.Kind == ErrTransient {
			c.markUnhealthy(perr.Reason)
		}
		return nil, perr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == deepLStatusQuotaExceeded {
			c.markUnhealthy("quota exhausted")
			return nil, newProviderError(ProviderPremium, ErrPermanent, FailQuotaExhausted,
				fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
		}
		perr := classifyStatus(ProviderPremium, resp.StatusCode, string(bodyBytes))
		c.markUnhealthy(perr.Reason)
		return nil, perr
	}

	var result DeepLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, newProviderError(ProviderPremium, ErrPermanent, FailBadResponse,
			fmt.Errorf("decode response: %w", err))
	}
	if len(result.Translations) == 0 {
		return nil, newProviderError(ProviderPremium, ErrPermanent, FailBadResponse,
			fmt.Errorf("empty translations array"))
	}

	c.markHealthy()

	detected := strings.ToLower(result.Translations[0].DetectedSourceLanguage)
	if detected == "" {
		detected = strings.ToLower(sourceLang)
	}

	return &TranslationResult{
		Text:       result.Translations[0].Text,
		SourceLang: detected,
		TargetLang: strings.ToLower(targetLang),
		Provider:   ProviderPremium,
		Latency:    time.Since(start),
	}, nil
}
