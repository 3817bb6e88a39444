package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func newGoogleWebTestServer(t *testing.T, handler http.HandlerFunc) *GoogleWebClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoogleWebClient(srv.URL, 5*time.Second, targetSet("en", "es", "sw"), testLogger())
}

func TestGoogleWeb_TranslateSuccess(t *testing.T) {
	var gotSL, gotTL string
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_a/single" {
			t.Errorf("Expected /translate_a/single, got %s", r.URL.Path)
		}
		gotSL = r.URL.Query().Get("sl")
		gotTL = r.URL.Query().Get("tl")
		w.Write([]byte(`[[["Hola mundo","Hello world",null,null,10]],null,"en"]`))
	})

	result, err := client.Translate(context.Background(), "Hello world", "", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if gotSL != "auto" {
		t.Errorf("Expected sl=auto for unknown source, got %q", gotSL)
	}
	if gotTL != "es" {
		t.Errorf("Expected tl=es, got %q", gotTL)
	}
	if result.Text != "Hola mundo" {
		t.Errorf("Expected translated text, got %q", result.Text)
	}
	if result.SourceLang != "en" {
		t.Errorf("Expected detected source en, got %q", result.SourceLang)
	}
	if result.Provider != ProviderBroad {
		t.Errorf("Expected broad provider, got %q", result.Provider)
	}
}

func TestGoogleWeb_ConcatenatesSegments(t *testing.T) {
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[["Hola ","Hello ",null,null,10],["mundo cruel","cruel world",null,null,10]],null,"en"]`))
	})

	result, err := client.Translate(context.Background(), "Hello cruel world", "en", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.Text != "Hola mundo cruel" {
		t.Errorf("Expected concatenated segments, got %q", result.Text)
	}
}

func TestGoogleWeb_TruncatesOversizedText(t *testing.T) {
	var gotLen int
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotLen = utf8.RuneCountInString(r.URL.Query().Get("q"))
		w.Write([]byte(`[[["ok","ok",null,null,10]],null,"en"]`))
	})

	long := strings.Repeat("palabra ", 300) // ~2400 runes
	if _, err := client.Translate(context.Background(), long, "en", "es"); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if gotLen != googleWebMaxChars {
		t.Errorf("Expected text truncated to %d runes, got %d", googleWebMaxChars, gotLen)
	}
}

func TestGoogleWeb_BadPayloadIsPermanent(t *testing.T) {
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
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

func TestGoogleWeb_ServerErrorIsTransient(t *testing.T) {
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Translate(context.Background(), "hello", "en", "es")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrTransient || perr.Reason != FailUpstreamStatus {
		t.Errorf("Expected transient/%s, got %s/%s", FailUpstreamStatus, perr.Kind, perr.Reason)
	}
}

func TestGoogleWeb_UnsupportedTargetRejectedLocally(t *testing.T) {
	hits := 0
	client := newGoogleWebTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	_, err := client.Translate(context.Background(), "hello", "en", "zz")

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Kind != ErrUnsupported {
		t.Errorf("Expected unsupported, got %q", perr.Kind)
	}
	if hits != 0 {
		t.Errorf("Expected no HTTP call, got %d", hits)
	}
}

func TestParseGoogleWebResponse_MissingDetectedLanguage(t *testing.T) {
	translated, detected, err := parseGoogleWebResponse([]byte(`[[["Hola","Hello",null,null,10]]]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if translated != "Hola" {
		t.Errorf("Expected Hola, got %q", translated)
	}
	if detected != "" {
		t.Errorf("Expected empty detected language, got %q", detected)
	}
}

func TestParseGoogleWebResponse_NoSegments(t *testing.T) {
	if _, _, err := parseGoogleWebResponse([]byte(`[[],null,"en"]`)); err == nil {
		t.Error("Expected error for payload without segments")
	}
	if _, _, err := parseGoogleWebResponse([]byte(`[]`)); err == nil {
		t.Error("Expected error for empty array")
	}
}

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"こんにちは", 3, "こんに"},
		{"hello", 0, ""},
	}
	for _, tc := range testCases {
		if got := truncateRunes(tc.in, tc.n); got != tc.want {
			t.Errorf("truncateRunes(%q, %d): expected %q, got %q", tc.in, tc.n, got, tc.want)
		}
	}
}
