package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polyglot-service/internal/cache"
	"polyglot-service/internal/clients"
	"polyglot-service/internal/config"
	"polyglot-service/internal/languages"
	"polyglot-service/internal/models"
	"polyglot-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("service", "test")
}

func prefKey(guildID, userID string) string {
	return guildID + "/" + userID
}

// fakeRepo is an in-memory TranslationRepository. The mutex matters:
// writeResult updates stats from a goroutine.
type fakeRepo struct {
	mu       sync.Mutex
	prefs    map[string]*models.UserLanguagePreference
	settings map[string]*models.GuildSettings
	stats    map[string]*models.TranslationStats
	records  []models.BroadcastRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		prefs:    make(map[string]*models.UserLanguagePreference),
		settings: make(map[string]*models.GuildSettings),
		stats:    make(map[string]*models.TranslationStats),
	}
}

func (f *fakeRepo) GetUserPreference(ctx context.Context, guildID, userID string) (*models.UserLanguagePreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[prefKey(guildID, userID)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListGuildPreferences(ctx context.Context, guildID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, p := range f.prefs {
		if p.GuildID == guildID {
			out[p.UserID] = p.Code
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveUserPreference(ctx context.Context, pref *models.UserLanguagePreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *pref
	cp.UpdatedAt = time.Now()
	f.prefs[prefKey(pref.GuildID, pref.UserID)] = &cp
	return nil
}

func (f *fakeRepo) DeleteUserPreference(ctx context.Context, guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prefs, prefKey(guildID, userID))
	return nil
}

func (f *fakeRepo) GetGuildSettings(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[guildID]; ok {
		cp := *s
		return &cp, nil
	}
	return models.DefaultGuildSettings(guildID), nil
}

func (f *fakeRepo) SaveGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *settings
	f.settings[settings.GuildID] = &cp
	return nil
}

func (f *fakeRepo) GetStats(ctx context.Context, guildID string) (*models.TranslationStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stats[guildID]; ok {
		cp := *s
		return &cp, nil
	}
	return &models.TranslationStats{GuildID: guildID}, nil
}

func (f *fakeRepo) UpdateStats(ctx context.Context, guildID string, cacheHit bool, characters int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[guildID]
	if !ok {
		s = &models.TranslationStats{GuildID: guildID}
		f.stats[guildID] = s
	}
	s.TotalRequests++
	s.TotalCharacters += characters
	if cacheHit {
		s.CacheHits++
	} else {
		s.CacheMisses++
	}
	return nil
}

func (f *fakeRepo) SaveBroadcastRecord(ctx context.Context, record *models.BroadcastRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeRepo) RecentBroadcasts(ctx context.Context, guildID string, limit int) ([]models.BroadcastRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BroadcastRecord
	for _, r := range f.records {
		if r.GuildID == guildID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// echoProvider translates by tagging text with the target code so tests
// can tell which tier and target produced a response.
type echoProvider struct {
	name    clients.ProviderID
	targets map[string]struct{}

	mu    sync.Mutex
	calls int
}

func (p *echoProvider) Name() clients.ProviderID           { return p.name }
func (p *echoProvider) Priority() int                      { return 1 }
func (p *echoProvider) IsConfigured() bool                 { return true }
func (p *echoProvider) IsHealthy(ctx context.Context) bool { return true }
func (p *echoProvider) DetectsSource() bool                { return true }

func (p *echoProvider) SupportsTarget(targetLang string) bool {
	_, ok := p.targets[targetLang]
	return ok
}

func (p *echoProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (*clients.TranslationResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	src := sourceLang
	if src == "" {
		src = "en"
	}
	return &clients.TranslationResult{
		Text:       "[" + targetLang + "] " + text,
		SourceLang: src,
		TargetLang: targetLang,
		Confidence: 0.9,
	}, nil
}

func (p *echoProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakePlatform stands in for the platform gateway: roster, role codes,
// and message delivery.
type fakePlatform struct {
	mu       sync.Mutex
	roster   []models.Recipient
	roles    map[string][]string
	dms      map[string]string
	channels map[string]string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		roles:    make(map[string][]string),
		dms:      make(map[string]string),
		channels: make(map[string]string),
	}
}

func (f *fakePlatform) ListRecipients(ctx context.Context, guildID string) ([]models.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Recipient(nil), f.roster...), nil
}

func (f *fakePlatform) UserLanguageCodes(ctx context.Context, guildID, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[userID], nil
}

func (f *fakePlatform) SendDirectMessage(ctx context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = content
	return nil
}

func (f *fakePlatform) SendChannelMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelID] = content
	return nil
}

func (f *fakePlatform) dmContent(userID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.dms[userID]
	return content, ok
}

type testEnv struct {
	router   *gin.Engine
	repo     *fakeRepo
	platform *fakePlatform
	provider *echoProvider
}

// setupTestEnv wires the full handler stack over in-memory fakes with a
// single premium tier covering en, es, fr, and de.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	dir := languages.New()
	repo := newFakeRepo()
	platform := newFakePlatform()

	provider := &echoProvider{
		name: clients.ProviderPremium,
		targets: map[string]struct{}{
			"en": {}, "es": {}, "fr": {}, "de": {},
		},
	}

	store := cache.NewMemoryCache(64, time.Minute)
	orchestrator := clients.NewTranslationOrchestrator([]clients.TranslationProvider{provider}, store, logger)
	resolver := services.NewTargetResolver(dir, repo, platform, "", logger)
	broadcaster := services.NewBroadcaster(orchestrator, resolver, platform, platform, repo, dir, config.BroadcastConfig{}, logger)

	translationHandler := NewTranslationHandler(repo, orchestrator, resolver, dir, logger)
	broadcastHandler := NewBroadcastHandler(broadcaster, repo, logger)
	preferenceHandler := NewPreferenceHandler(repo, dir, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/translate", translationHandler.Translate)
		v1.POST("/translate/author", translationHandler.TranslateForAuthor)
		v1.POST("/broadcast", broadcastHandler.Broadcast)
		v1.GET("/languages", translationHandler.GetLanguages)
		v1.GET("/languages/resolve", translationHandler.ResolveLanguage)

		guilds := v1.Group("/guilds/:guildID")
		{
			guilds.GET("/members/:userID/preference", preferenceHandler.GetPreference)
			guilds.PUT("/members/:userID/preference", preferenceHandler.SetPreference)
			guilds.DELETE("/members/:userID/preference", preferenceHandler.DeletePreference)
			guilds.GET("/settings", preferenceHandler.GetGuildSettings)
			guilds.PUT("/settings", preferenceHandler.UpdateGuildSettings)
			guilds.GET("/stats", translationHandler.GetStats)
			guilds.GET("/broadcasts", broadcastHandler.RecentBroadcasts)
		}
	}

	return &testEnv{router: router, repo: repo, platform: platform, provider: provider}
}

func (e *testEnv) postJSON(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) putJSON(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	e.router.ServeHTTP(w, req)
	return w
}

func TestTranslate_Success(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Hello world",
		Target: "Spanish",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.TranslatedText != "[es] Hello world" {
		t.Errorf("Expected translated text '[es] Hello world', got '%s'", resp.TranslatedText)
	}
	if resp.TargetLang != "es" {
		t.Errorf("Expected target_lang 'es', got '%s'", resp.TargetLang)
	}
	if resp.SourceLang != "en" {
		t.Errorf("Expected source_lang 'en', got '%s'", resp.SourceLang)
	}
	if resp.Provider != "premium" {
		t.Errorf("Expected provider 'premium', got '%s'", resp.Provider)
	}
	if resp.Cached {
		t.Error("Expected first call to miss the cache")
	}
}

func TestTranslate_FlagEmojiTarget(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Good evening",
		Target: "🇫🇷",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TargetLang != "fr" {
		t.Errorf("Expected target_lang 'fr', got '%s'", resp.TargetLang)
	}
}

func TestTranslate_SecondCallCached(t *testing.T) {
	env := setupTestEnv(t)
	reqBody := models.TranslateRequest{Text: "Hello again", Target: "es"}

	first := env.postJSON(t, "/api/v1/translate", reqBody)
	if first.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on first call, got %d", first.Code)
	}

	second := env.postJSON(t, "/api/v1/translate", reqBody)
	if second.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on second call, got %d", second.Code)
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Cached {
		t.Error("Expected second identical request to be served from cache")
	}
	if resp.Provider != "premium" {
		t.Errorf("Expected cached response to keep provider 'premium', got '%s'", resp.Provider)
	}
	if env.provider.callCount() != 1 {
		t.Errorf("Expected exactly 1 provider call, got %d", env.provider.callCount())
	}
}

func TestTranslate_EchoWhenSourceEqualsTarget(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Already in English",
		Target: "en",
		Source: "English",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TranslatedText != "Already in English" {
		t.Errorf("Expected original text back, got '%s'", resp.TranslatedText)
	}
	if resp.Reason != "no_translation_needed" {
		t.Errorf("Expected reason 'no_translation_needed', got '%s'", resp.Reason)
	}
	if env.provider.callCount() != 0 {
		t.Errorf("Expected no provider calls, got %d", env.provider.callCount())
	}
}

func TestTranslate_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/translate", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTranslate_MissingTarget(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{Text: "Hello"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "needs_target" {
		t.Errorf("Expected error 'needs_target', got '%s'", resp.Error)
	}
}

func TestTranslate_UnknownTarget(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Hello",
		Target: "klingon",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "unknown_language" {
		t.Errorf("Expected error 'unknown_language', got '%s'", resp.Error)
	}
}

func TestTranslate_UnsupportedTarget(t *testing.T) {
	env := setupTestEnv(t)

	// Swahili is in the directory but outside the configured tier's range.
	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Hello",
		Target: "Swahili",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "unsupported_target" {
		t.Errorf("Expected error 'unsupported_target', got '%s'", resp.Error)
	}
	if env.provider.callCount() != 0 {
		t.Errorf("Expected no provider calls for uncovered target, got %d", env.provider.callCount())
	}
}

func TestTranslate_InvalidSourceHintDegradesToDetection(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate", models.TranslateRequest{
		Text:   "Hello",
		Target: "es",
		Source: "not-a-language",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.SourceLang != "en" {
		t.Errorf("Expected detected source 'en', got '%s'", resp.SourceLang)
	}
}

func TestTranslateForAuthor_StoredPreference(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.prefs[prefKey("guild-1", "user-1")] = &models.UserLanguagePreference{
		GuildID: "guild-1",
		UserID:  "user-1",
		Code:    "fr",
	}

	w := env.postJSON(t, "/api/v1/translate/author", models.TranslateForAuthorRequest{
		Text:     "Good morning",
		AuthorID: "user-1",
		GuildID:  "guild-1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TargetLang != "fr" {
		t.Errorf("Expected target resolved to 'fr', got '%s'", resp.TargetLang)
	}
}

func TestTranslateForAuthor_RoleLanguage(t *testing.T) {
	env := setupTestEnv(t)
	env.platform.roles["user-2"] = []string{"german"}

	w := env.postJSON(t, "/api/v1/translate/author", models.TranslateForAuthorRequest{
		Text:     "Good morning",
		AuthorID: "user-2",
		GuildID:  "guild-1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TargetLang != "de" {
		t.Errorf("Expected target resolved to 'de', got '%s'", resp.TargetLang)
	}
}

func TestTranslateForAuthor_ExplicitTargetWins(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.prefs[prefKey("guild-1", "user-1")] = &models.UserLanguagePreference{
		GuildID: "guild-1",
		UserID:  "user-1",
		Code:    "fr",
	}

	w := env.postJSON(t, "/api/v1/translate/author", models.TranslateForAuthorRequest{
		Text:     "Good morning",
		AuthorID: "user-1",
		GuildID:  "guild-1",
		Target:   "Spanish",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TranslateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.TargetLang != "es" {
		t.Errorf("Expected explicit target 'es' to win over preference, got '%s'", resp.TargetLang)
	}
}

func TestTranslateForAuthor_NoTargetResolvable(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/translate/author", models.TranslateForAuthorRequest{
		Text:     "Good morning",
		AuthorID: "user-without-anything",
		GuildID:  "guild-1",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "needs_target" {
		t.Errorf("Expected error 'needs_target', got '%s'", resp.Error)
	}
}

func TestGetLanguages(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, "GET", "/api/v1/languages")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Languages []languages.Entry `json:"languages"`
		Total     int               `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Total == 0 || resp.Total != len(resp.Languages) {
		t.Errorf("Expected consistent non-empty directory, got total %d with %d entries", resp.Total, len(resp.Languages))
	}

	found := false
	for _, e := range resp.Languages {
		if e.Code == "es" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected directory to contain 'es'")
	}
}

func TestResolveLanguage(t *testing.T) {
	env := setupTestEnv(t)

	testCases := []struct {
		input string
		code  string
	}{
		{"Spanish", "es"},
		{"español", "es"},
		{"🇫🇷", "fr"},
		{"FR", "fr"},
		{"auto", "auto"},
		{"xyzzy", "unknown"},
	}

	for _, tc := range testCases {
		w := env.do(t, "GET", "/api/v1/languages/resolve?q="+url.QueryEscape(tc.input))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200 for %q, got %d", tc.input, w.Code)
			continue
		}

		var resp models.ResolveLanguageResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response for %q: %v", tc.input, err)
		}
		if resp.Code != tc.code {
			t.Errorf("Expected %q to resolve to '%s', got '%s'", tc.input, tc.code, resp.Code)
		}
	}
}

func TestResolveLanguage_MissingQuery(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, "GET", "/api/v1/languages/resolve")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetPreference_NotSet(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, "GET", "/api/v1/guilds/guild-1/members/user-1/preference")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["preference"] != nil {
		t.Errorf("Expected null preference, got %v", resp["preference"])
	}
}

func TestSetPreference_NormalizesAlias(t *testing.T) {
	env := setupTestEnv(t)

	w := env.putJSON(t, "/api/v1/guilds/guild-1/members/user-1/preference", models.UserPreferenceRequest{
		Language: "Français",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["code"] != "fr" {
		t.Errorf("Expected stored code 'fr', got %v", resp["code"])
	}
	if resp["name"] != "French" {
		t.Errorf("Expected display name 'French', got %v", resp["name"])
	}

	stored, _ := env.repo.GetUserPreference(context.Background(), "guild-1", "user-1")
	if stored == nil || stored.Code != "fr" {
		t.Errorf("Expected persisted preference 'fr', got %+v", stored)
	}
}

func TestSetPreference_UnknownLanguage(t *testing.T) {
	env := setupTestEnv(t)

	w := env.putJSON(t, "/api/v1/guilds/guild-1/members/user-1/preference", models.UserPreferenceRequest{
		Language: "elvish",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "unknown_language" {
		t.Errorf("Expected error 'unknown_language', got '%s'", resp.Error)
	}
}

func TestSetPreference_AutoRejected(t *testing.T) {
	env := setupTestEnv(t)

	w := env.putJSON(t, "/api/v1/guilds/guild-1/members/user-1/preference", models.UserPreferenceRequest{
		Language: "auto",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Error != "needs_target" {
		t.Errorf("Expected error 'needs_target', got '%s'", resp.Error)
	}
}

func TestDeletePreference(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.prefs[prefKey("guild-1", "user-1")] = &models.UserLanguagePreference{
		GuildID: "guild-1",
		UserID:  "user-1",
		Code:    "es",
	}

	w := env.do(t, "DELETE", "/api/v1/guilds/guild-1/members/user-1/preference")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	stored, _ := env.repo.GetUserPreference(context.Background(), "guild-1", "user-1")
	if stored != nil {
		t.Errorf("Expected preference removed, got %+v", stored)
	}
}

func TestGetGuildSettings_Defaults(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, "GET", "/api/v1/guilds/guild-1/settings")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp models.GuildSettings
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.GuildID != "guild-1" {
		t.Errorf("Expected guild_id 'guild-1', got '%s'", resp.GuildID)
	}
	if !resp.BroadcastEnabled {
		t.Error("Expected broadcasts enabled by default")
	}
}

func TestUpdateGuildSettings_PartialUpdate(t *testing.T) {
	env := setupTestEnv(t)

	lang := "Spanish"
	w := env.putJSON(t, "/api/v1/guilds/guild-1/settings", models.GuildSettingsRequest{
		DefaultLang: &lang,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.GuildSettings
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.DefaultLang != "es" {
		t.Errorf("Expected default_lang normalized to 'es', got '%s'", resp.DefaultLang)
	}

	// A later update that omits default_lang must leave it untouched.
	disabled := false
	w = env.putJSON(t, "/api/v1/guilds/guild-1/settings", models.GuildSettingsRequest{
		BroadcastEnabled: &disabled,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.DefaultLang != "es" {
		t.Errorf("Expected default_lang to survive partial update, got '%s'", resp.DefaultLang)
	}
	if resp.BroadcastEnabled {
		t.Error("Expected broadcasts disabled after update")
	}
}

func TestUpdateGuildSettings_UnknownLanguage(t *testing.T) {
	env := setupTestEnv(t)

	lang := "wookiee"
	w := env.putJSON(t, "/api/v1/guilds/guild-1/settings", models.GuildSettingsRequest{
		DefaultLang: &lang,
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBroadcast_Success(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.settings["guild-1"] = &models.GuildSettings{
		GuildID:          "guild-1",
		DefaultLang:      "en",
		BroadcastEnabled: true,
	}
	env.repo.prefs[prefKey("guild-1", "member-es")] = &models.UserLanguagePreference{
		GuildID: "guild-1",
		UserID:  "member-es",
		Code:    "es",
	}
	env.platform.roster = []models.Recipient{
		{ID: "sender-1", CanReceiveDM: true},
		{ID: "bot-1", Bot: true, CanReceiveDM: true},
		{ID: "member-es", CanReceiveDM: true},
		{ID: "member-fr", CanReceiveDM: true, LanguageCodes: []string{"fr"}},
		{ID: "member-default", CanReceiveDM: true},
		{ID: "member-closed", CanReceiveDM: false},
	}

	w := env.postJSON(t, "/api/v1/broadcast", models.BroadcastRequest{
		Text:       "Evacuate the east wing now",
		GuildID:    "guild-1",
		SenderID:   "sender-1",
		ChannelID:  "channel-9",
		SourceLang: "en",
		Origin:     "slash_command",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report models.BroadcastReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if report.Recipients != 4 {
		t.Errorf("Expected 4 recipients after dropping sender and bot, got %d", report.Recipients)
	}
	if report.Sent != 3 {
		t.Errorf("Expected 3 sent, got %d", report.Sent)
	}
	if report.DMFailed != 1 {
		t.Errorf("Expected 1 DM failure for closed DMs, got %d", report.DMFailed)
	}
	if report.Groups != 3 {
		t.Errorf("Expected 3 language groups, got %d", report.Groups)
	}
	if !report.AlertSent {
		t.Error("Expected origin channel alert to be sent")
	}
	if report.TranslationFallback != 0 {
		t.Errorf("Expected no translation fallbacks, got %d", report.TranslationFallback)
	}

	if content, ok := env.platform.dmContent("member-es"); !ok || content != "[es] Evacuate the east wing now" {
		t.Errorf("Expected Spanish DM for member-es, got %q", content)
	}
	if content, ok := env.platform.dmContent("member-fr"); !ok || content != "[fr] Evacuate the east wing now" {
		t.Errorf("Expected French DM for member-fr, got %q", content)
	}
	// The guild-default group matches the source language, so the original
	// text goes out without a provider call.
	if content, ok := env.platform.dmContent("member-default"); !ok || content != "Evacuate the east wing now" {
		t.Errorf("Expected source text DM for member-default, got %q", content)
	}
	if _, ok := env.platform.dmContent("member-closed"); ok {
		t.Error("Expected no DM to a member with closed DMs")
	}

	records, _ := env.repo.RecentBroadcasts(context.Background(), "guild-1", 10)
	if len(records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(records))
	}
	if records[0].Sent != 3 || records[0].Origin != "slash_command" {
		t.Errorf("Expected audit record to mirror the report, got %+v", records[0])
	}
}

func TestBroadcast_Disabled(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.settings["guild-1"] = &models.GuildSettings{
		GuildID:          "guild-1",
		BroadcastEnabled: false,
	}

	w := env.postJSON(t, "/api/v1/broadcast", models.BroadcastRequest{
		Text:     "Help",
		GuildID:  "guild-1",
		SenderID: "sender-1",
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["error"] != "BROADCASTS_DISABLED" {
		t.Errorf("Expected error 'BROADCASTS_DISABLED', got %v", resp["error"])
	}
}

func TestBroadcast_MissingFields(t *testing.T) {
	env := setupTestEnv(t)

	w := env.postJSON(t, "/api/v1/broadcast", models.BroadcastRequest{Text: "Help"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing guild and sender, got %d", w.Code)
	}
}

func TestRecentBroadcasts(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.records = []models.BroadcastRecord{
		{GuildID: "guild-1", Origin: "api", Sent: 5},
		{GuildID: "guild-1", Origin: "reaction", Sent: 2},
		{GuildID: "guild-2", Origin: "api", Sent: 9},
	}

	w := env.do(t, "GET", "/api/v1/guilds/guild-1/broadcasts")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Broadcasts []models.BroadcastRecord `json:"broadcasts"`
		Total      int                      `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Expected 2 records for guild-1, got %d", resp.Total)
	}

	w = env.do(t, "GET", "/api/v1/guilds/guild-1/broadcasts?limit=1")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("Expected limit=1 to cap the result, got %d", resp.Total)
	}
}

func TestGetStats(t *testing.T) {
	env := setupTestEnv(t)
	env.repo.stats["guild-1"] = &models.TranslationStats{
		GuildID:       "guild-1",
		TotalRequests: 7,
		CacheHits:     3,
	}

	w := env.do(t, "GET", "/api/v1/guilds/guild-1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Stats     models.TranslationStats                          `json:"stats"`
		Providers map[clients.ProviderID]*clients.ProviderMetrics `json:"providers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Stats.TotalRequests != 7 {
		t.Errorf("Expected total_requests 7, got %d", resp.Stats.TotalRequests)
	}
	if _, ok := resp.Providers["premium"]; !ok {
		t.Error("Expected provider metrics for the premium tier")
	}
}
