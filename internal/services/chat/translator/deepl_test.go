package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepLTranslate(t *testing.T) {
	var got deeplRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/translate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "DeepL-Auth-Key secret-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Привет, мир"}]}`))
	}))
	defer server.Close()

	engine, err := NewDeepL(server.URL+"/", "secret-key", server.Client())
	if err != nil {
		t.Fatalf("new deepl: %v", err)
	}
	out, err := engine.Translate(context.Background(), "Hello world", "en", "ru")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "Привет, мир" {
		t.Fatalf("translate = %q", out)
	}
	if len(got.Text) != 1 || got.Text[0] != "Hello world" || got.SourceLang != "EN" || got.TargetLang != "RU" {
		t.Fatalf("request = %+v", got)
	}
}

func TestDeepLStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		reason string
	}{
		{http.StatusBadRequest, "bad request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusTooManyRequests, "rate limited"},
		{456, "quota exceeded"},
		{http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))
		engine, err := NewDeepL(server.URL, "", server.Client())
		if err != nil {
			t.Fatalf("new deepl: %v", err)
		}
		_, err = engine.Translate(context.Background(), "hi", "en", "ru")
		server.Close()

		var engineErr *EngineError
		if !errors.As(err, &engineErr) {
			t.Fatalf("status %d: expected EngineError, got %v", tc.status, err)
		}
		if engineErr.StatusCode != tc.status || engineErr.Reason != tc.reason {
			t.Fatalf("status %d: got %+v", tc.status, engineErr)
		}
	}
}

func TestDeepLEmptyTranslations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translations":[]}`))
	}))
	defer server.Close()

	engine, err := NewDeepL(server.URL, "k", nil)
	if err != nil {
		t.Fatalf("new deepl: %v", err)
	}
	if _, err := engine.Translate(context.Background(), "hi", "en", "ru"); err == nil {
		t.Fatal("expected error for empty translations")
	}
}

func TestNewDeepLRequiresURL(t *testing.T) {
	if _, err := NewDeepL("  ", "k", nil); err == nil {
		t.Fatal("expected missing url error")
	}
}
