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
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"polyglot-service/internal/languages"
)

// myMemoryMaxChars is MyMemory's hard per-request limit. Longer texts are
// rejected before any HTTP call.
const myMemoryMaxChars = 500

// MyMemoryClient is the free tier. Wide coverage, no key required, but a
// daily request budget enforced locally so the shared quota is not burned.
type MyMemoryClient struct {
	baseURL    string
	apiKey     string
	email      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Entry
	targets    map[string]struct{}

	// Daily budget. Decremented before each HTTP call; refunded only when
	// the attempt never consumed upstream quota (unsupported pair, or a
	// failure before the request went out).
	budgetMu    sync.Mutex
	budgetDay   time.Time
	budgetLeft  int
	dailyBudget int

	// Health tracking
	healthMu     sync.RWMutex
	healthy      bool
	lastHealthy  time.Time
	failureCount int
}

// MyMemoryResponse is the JSON body of GET /get.
type MyMemoryResponse struct {
	ResponseData struct {
		TranslatedText string  `json:"translatedText"`
		Match          float64 `json:"match"`
	} `json:"responseData"`
	ResponseStatus  int    `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
}

// NewMyMemoryClient creates the free adapter. apiKey and email are optional
// and unlock the higher MyMemory quota tier.
func NewMyMemoryClient(baseURL, apiKey, email string, timeout time.Duration, dailyBudget int, targets map[string]struct{}, logger *logrus.Entry) *MyMemoryClient {
	return &MyMemoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		email:   email,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
		logger:      logger,
		targets:     targets,
		budgetDay:   time.Now().UTC().Truncate(24 * time.Hour),
		budgetLeft:  dailyBudget,
		dailyBudget: dailyBudget,
		healthy:     true,
	}
}

// Name returns the tier identifier
func (c *MyMemoryClient) Name() ProviderID {
	return ProviderFree
}

// Priority returns the tier priority (2 = tried after premium)
func (c *MyMemoryClient) Priority() int {
	return 2
}

// IsConfigured returns true when a base URL is set; the endpoint itself
// needs no key
func (c *MyMemoryClient) IsConfigured() bool {
	return c.baseURL != ""
}

// IsHealthy checks if the provider is currently healthy
func (c *MyMemoryClient) IsHealthy(ctx context.Context) bool {
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

// SupportsTarget checks the directory-derived free capability set
func (c *MyMemoryClient) SupportsTarget(targetLang string) bool {
	_, ok := c.targets[strings.ToLower(targetLang)]
	return ok
}

// DetectsSource returns false: MyMemory requires a concrete langpair
func (c *MyMemoryClient) DetectsSource() bool {
	return false
}

// BudgetRemaining returns the requests left in today's budget.
func (c *MyMemoryClient) BudgetRemaining() int {
	c.budgetMu.Lock()
	defer c.budgetMu.Unlock()
	c.rollBudgetLocked()
	return c.budgetLeft
}

// spendBudget takes one request from today's budget. It returns false when
// the budget is already spent. Day rollover happens on UTC midnight.
func (c *MyMemoryClient) spendBudget() bool {
	c.budgetMu.Lock()
	defer c.budgetMu.Unlock()
	c.rollBudgetLocked()
	if c.budgetLeft <= 0 {
		return false
	}
	c.budgetLeft--
	return true
}

// refundBudget returns one request to the budget. Used only when the
// attempt consumed no upstream quota: an unsupported pair, or a failure
// before the request went out.
func (c *MyMemoryClient) refundBudget() {
	c.budgetMu.Lock()
	defer c.budgetMu.Unlock()
	c.rollBudgetLocked()
	if c.budgetLeft < c.dailyBudget {
		c.budgetLeft++
	}
}

func (c *MyMemoryClient) rollBudgetLocked() {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if day.After(c.budgetDay) {
		c.budgetDay = day
		c.budgetLeft = c.dailyBudget
	}
}

func (c *MyMemoryClient) markHealthy() {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = true
	c.lastHealthy = time.Now()
	c.failureCount = 0
}

func (c *MyMemoryClient) markUnhealthy(reason string) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.healthy = false
	c.failureCount++
	c.logger.WithFields(logrus.Fields{
		"reason":        reason,
		"failure_count": c.failureCount,
	}).Warn("MyMemory marked unhealthy")
}

// Translate translates text into targetLang (implements TranslationProvider).
// MyMemory cannot detect the source; an empty sourceLang falls back to the
// script heuristic.
func (c *MyMemoryClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (*TranslationResult, error) {
	start := time.Now()

	if !c.SupportsTarget(targetLang) {
		return nil, newProviderError(ProviderFree, ErrUnsupported, FailUnsupportedPair,
			fmt.Errorf("target %q outside free set", targetLang))
	}
	if utf8.RuneCountInString(text) > myMemoryMaxChars {
		return nil, newProviderError(ProviderFree, ErrPermanent, FailTextTooLong,
			fmt.Errorf("text exceeds %d characters", myMemoryMaxChars))
	}

	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = languages.GuessSource(text)
	}
	sourceLang = strings.ToLower(sourceLang)
	targetLang = strings.ToLower(targetLang)
	if sourceLang == targetLang {
		return nil, newProviderError(ProviderFree, ErrUnsupported, FailUnsupportedPair,
			fmt.Errorf("langpair %s|%s is a no-op", sourceLang, targetLang))
	}

	if !c.spendBudget() {
		return nil, newProviderError(ProviderFree, ErrPermanent, FailBudgetExhausted,
			fmt.Errorf("daily budget of %d requests spent", c.dailyBudget))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.refundBudget()
		return nil, newProviderError(ProviderFree, ErrCancelled, FailContext, err)
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", sourceLang+"|"+targetLang)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	if c.email != "" {
		params.Set("de", c.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		c.refundBudget()
		return nil, newProviderError(ProviderFree, ErrPermanent, FailBadResponse,
			fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		perr := classifyTransport(ProviderFree, ctx, err)
		if perr.Kind == ErrTransient {
			c.markUnhealthy(perr.Reason)
		}
		return nil, perr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		perr := classifyStatus(ProviderFree, resp.StatusCode, string(bodyBytes))
		c.markUnhealthy(perr.Reason)
		return nil, perr
	}

	var result MyMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, newProviderError(ProviderFree, ErrPermanent, FailBadResponse,
			fmt.Errorf("decode response: %w", err))
	}

	if result.ResponseStatus != 0 && result.ResponseStatus != http.StatusOK {
		details := strings.ToUpper(result.ResponseDetails)
		if strings.Contains(details, "INVALID") && strings.Contains(details, "LANGUAGE") {
			// Unsupported pairs consume no upstream quota.
			c.refundBudget()
			return nil, newProviderError(ProviderFree, ErrUnsupported, FailUnsupportedPair,
				fmt.Errorf("mymemory: %s", result.ResponseDetails))
		}
		if strings.Contains(details, "QUOTA") {
			return nil, newProviderError(ProviderFree, ErrPermanent, FailQuotaExhausted,
				fmt.Errorf("mymemory: %s", result.ResponseDetails))
		}
		return nil, newProviderError(ProviderFree, ErrPermanent, FailBadResponse,
			fmt.Errorf("mymemory status %d: %s", result.ResponseStatus, result.ResponseDetails))
	}
	if result.ResponseData.TranslatedText == "" {
		return nil, newProviderError(ProviderFree, ErrPermanent, FailBadResponse,
			fmt.Errorf("empty translation"))
	}

	c.markHealthy()

	return &TranslationResult{
		Text:       result.ResponseData.TranslatedText,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Provider:   ProviderFree,
		Confidence: result.ResponseData.Match,
		Latency:    time.Since(start),
	}, nil
}
