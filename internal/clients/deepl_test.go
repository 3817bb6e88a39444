package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newDeepLTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *DeepLClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewDeepLClient(srv.URL, "test-key", 5*time.Second, targetSet("es", "fr", "de"), testLogger())
	return srv, client
}

func TestDeepL_TranslateSuccess(t *testing.T) {
	var gotAuth string
	var gotReq DeepLRequest
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v2/translate" {
			t.Errorf("Expected /v2/translate, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hola mundo"}]}`))
	})

	result, err := client.Translate(context.Background(), "Hello world", "", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if gotAuth != "DeepL-Auth-Key test-key" {
		t.Errorf("Expected auth header with API key, got %q", gotAuth)
	}
	if gotReq.TargetLang != "ES" {
		t.Errorf("Expected uppercase target ES, got %q", gotReq.TargetLang)
	}
	if gotReq.SourceLang != "" {
		t.Errorf("Expected source omitted for detection, got %q", gotReq.SourceLang)
	}
	if result.Text != "Hola mundo" {
		t.Errorf("Expected translated text, got %q", result.Text)
	}
	if result.SourceLang != "en" {
		t.Errorf("Expected detected source lowercased to en, got %q", result.SourceLang)
	}
	if result.TargetLang != "es" {
		t.Errorf("Expected target es, got %q", result.TargetLang)
	}
	if result.Provider != ProviderPremium {
		t.Errorf("Expected premium provider, got %q", result.Provider)
	}
}

func TestDeepL_SendsConcreteSource(t *testing.T) {
	var gotReq DeepLRequest
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"translations":[{"text":"Hallo"}]}`))
	})

	if _, err := client.Translate(context.Background(), "hello", "en", "de"); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if gotReq.SourceLang != "EN" {
		t.Errorf("Expected uppercase source EN, got %q", gotReq.SourceLang)
	}
}

func TestDeepL_UnsupportedTargetRejectedLocally(t *testing.T) {
	hits := 0
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	_, err := client.Translate(context.Background(), "hello", "en", "sw")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrUnsupported {
		t.Errorf("Expected kind %q, got %q", ErrUnsupported, perr.Kind)
	}
	if hits != 0 {
		t.Errorf("Expected no HTTP call for an uncovered target, got %d", hits)
	}
}

func TestDeepL_TextTooLongRejectedLocally(t *testing.T) {
	hits := 0
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	_, err := client.Translate(context.Background(), strings.Repeat("a", deepLMaxChars+1), "en", "es")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrPermanent || perr.Reason != FailTextTooLong {
		t.Errorf("Expected permanent/%s, got %s/%s", FailTextTooLong, perr.Kind, perr.Reason)
	}
	if hits != 0 {
		t.Errorf("Expected no HTTP call for oversized text, got %d", hits)
	}
}

func TestDeepL_QuotaStatusIsPermanent(t *testing.T) {
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(deepLStatusQuotaExceeded)
		w.Write([]byte(`{"message":"Quota exceeded"}`))
	})

	_, err := client.Translate(context.Background(), "hello", "en", "es")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrPermanent || perr.Reason != FailQuotaExhausted {
		t.Errorf("Expected permanent/%s, got %s/%s", FailQuotaExhausted, perr.Kind, perr.Reason)
	}
}

func TestDeepL_RateLimitStatusIsTransient(t *testing.T) {
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Translate(context.Background(), "hello", "en", "es")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrTransient || perr.Reason != FailRateLimited {
		t.Errorf("Expected transient/%s, got %s/%s", FailRateLimited, perr.Kind, perr.Reason)
	}
}

func TestDeepL_EmptyTranslationsIsBadResponse(t *testing.T) {
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[]}`))
	})

	_, err := client.Translate(context.Background(), "hello", "en", "es")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrPermanent || perr.Reason != FailBadResponse {
		t.Errorf("Expected permanent/%s, got %s/%s", FailBadResponse, perr.Kind, perr.Reason)
	}
}

func TestDeepL_SlowUpstreamBoundedByTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	timeout := 200 * time.Millisecond
	client := NewDeepLClient(srv.URL, "test-key", timeout, targetSet("es"), testLogger())

	start := time.Now()
	_, err := client.Translate(context.Background(), "hello", "en", "es")
	elapsed := time.Since(start)

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrTransient || perr.Reason != FailTimeout {
		t.Errorf("Expected transient/%s, got %s/%s", FailTimeout, perr.Kind, perr.Reason)
	}
	if elapsed > timeout+800*time.Millisecond {
		t.Errorf("Expected attempt bounded by the %v client timeout, took %v", timeout, elapsed)
	}
}

func TestDeepL_ParentDeadlineIsCancelledNotTimeout(t *testing.T) {
	release := make(chan struct{})
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Translate(ctx, "hello", "en", "es")

	// The wire error looks like a timeout; the dead parent context must win.
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrCancelled || perr.Reason != FailContext {
		t.Errorf("Expected cancelled/%s, got %s/%s", FailContext, perr.Kind, perr.Reason)
	}
	if !client.IsHealthy(context.Background()) {
		t.Error("Expected caller cancellation to leave provider health untouched")
	}
}

func TestDeepL_FailureAfterSuccessEntersBackoff(t *testing.T) {
	fail := false
	_, client := newDeepLTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"translations":[{"text":"Hola"}]}`))
	})

	ctx := context.Background()
	if _, err := client.Translate(ctx, "hello", "en", "es"); err != nil {
		t.Fatalf("Expected first call to succeed: %v", err)
	}
	if !client.IsHealthy(ctx) {
		t.Fatal("Expected healthy after success")
	}

	fail = true
	if _, err := client.Translate(ctx, "hello", "en", "es"); err == nil {
		t.Fatal("Expected second call to fail")
	}
	if client.IsHealthy(ctx) {
		t.Error("Expected backoff immediately after a failure")
	}
}

func TestDeepL_IsConfigured(t *testing.T) {
	withKey := NewDeepLClient("https://api-free.deepl.com", "key", time.Second, nil, testLogger())
	if !withKey.IsConfigured() {
		t.Error("Expected configured with key and URL")
	}
	withoutKey := NewDeepLClient("https://api-free.deepl.com", "", time.Second, nil, testLogger())
	if withoutKey.IsConfigured() {
		t.Error("Expected unconfigured without key")
	}
}
