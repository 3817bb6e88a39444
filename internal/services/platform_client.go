package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"polyglot-service/internal/models"
)

// rosterTTL bounds how long a cached guild roster is considered fresh.
// A stale roster is still preferred over failing a broadcast outright.
const rosterTTL = 15 * time.Minute

type cachedRoster struct {
	recipients []models.Recipient
	cachedAt   time.Time
}

// PlatformClient talks to the platform gateway service that fronts the chat
// platform: guild rosters, member language roles, DMs, and channel posts.
type PlatformClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	mu      sync.RWMutex
	rosters map[string]*cachedRoster
}

// NewPlatformClient creates a gateway client with pooled connections.
func NewPlatformClient(baseURL string, logger *logrus.Entry) *PlatformClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &PlatformClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		logger:  logger,
		rosters: make(map[string]*cachedRoster),
	}
}

// ListRecipients returns the deliverable members of a guild, using the
// cached roster when fresh and falling back to a stale one when the
// gateway is unreachable.
func (c *PlatformClient) ListRecipients(ctx context.Context, guildID string) ([]models.Recipient, error) {
	if guildID == "" {
		return nil, fmt.Errorf("guild ID is empty")
	}

	c.mu.RLock()
	if roster, ok := c.rosters[guildID]; ok {
		if time.Since(roster.cachedAt) < rosterTTL {
			c.mu.RUnlock()
			return roster.recipients, nil
		}
	}
	c.mu.RUnlock()

	recipients, err := c.fetchRecipients(ctx, guildID)
	if err != nil {
		c.mu.RLock()
		stale, ok := c.rosters[guildID]
		c.mu.RUnlock()
		if ok {
			c.logger.WithField("guild_id", guildID).WithError(err).Warn("Using stale roster cache")
			return stale.recipients, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.rosters[guildID] = &cachedRoster{recipients: recipients, cachedAt: time.Now()}
	c.mu.Unlock()

	return recipients, nil
}

func (c *PlatformClient) fetchRecipients(ctx context.Context, guildID string) ([]models.Recipient, error) {
	url := fmt.Sprintf("%s/internal/guilds/%s/recipients", c.baseURL, guildID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Internal-Service", "polyglot-service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipients: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		Success bool               `json:"success"`
		Data    []models.Recipient `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode recipients: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("platform gateway rejected recipient listing")
	}

	return result.Data, nil
}

// UserLanguageCodes returns the raw language role codes of one member,
// ordered by role position. Codes are not normalized here.
func (c *PlatformClient) UserLanguageCodes(ctx context.Context, guildID, userID string) ([]string, error) {
	url := fmt.Sprintf("%s/internal/guilds/%s/members/%s/languages", c.baseURL, guildID, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Internal-Service", "polyglot-service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member languages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Codes []string `json:"codes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode member languages: %w", err)
	}

	return result.Data.Codes, nil
}

// SendDirectMessage delivers one DM through the gateway. A non-2xx status
// is an error; callers decide whether it is fatal.
func (c *PlatformClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	url := fmt.Sprintf("%s/internal/users/%s/dm", c.baseURL, userID)
	return c.postMessage(ctx, url, content)
}

// SendChannelMessage posts a message to a channel through the gateway.
func (c *PlatformClient) SendChannelMessage(ctx context.Context, channelID, content string) error {
	url := fmt.Sprintf("%s/internal/channels/%s/messages", c.baseURL, channelID)
	return c.postMessage(ctx, url, content)
}

func (c *PlatformClient) postMessage(ctx context.Context, url, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Service", "polyglot-service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// ClearRosterCache drops every cached roster.
func (c *PlatformClient) ClearRosterCache() {
	c.mu.Lock()
	c.rosters = make(map[string]*cachedRoster)
	c.mu.Unlock()
}
