package authn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIntrospectVerifierSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token-1")
		}
		if got := r.Header.Get("X-Resource-Secret"); got != "secret-1" {
			t.Errorf("X-Resource-Secret = %q, want %q", got, "secret-1")
		}
		_ = json.NewEncoder(w).Encode(introspectResponse{Active: true, UserID: "user-1", Name: "Ada"})
	}))
	t.Cleanup(srv.Close)

	v, err := NewIntrospectVerifier(srv.URL+"/introspect", "secret-1", srv.Client())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	identity, err := v.Verify(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Subject != "user-1" || identity.DisplayName != "Ada" {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestIntrospectVerifierFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"inactive", http.StatusOK, `{"active":false,"user_id":"user-1"}`},
		{"empty user", http.StatusOK, `{"active":true,"user_id":"  "}`},
		{"status", http.StatusUnauthorized, `{}`},
		{"malformed", http.StatusOK, `{`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			v, err := NewIntrospectVerifier(srv.URL, "secret-1", srv.Client())
			if err != nil {
				t.Fatalf("new verifier: %v", err)
			}
			if _, err := v.Verify(context.Background(), "token-1"); err == nil {
				t.Fatal("expected verification failure")
			}
		})
	}
}

func TestNewIntrospectVerifierRequiresConfig(t *testing.T) {
	if _, err := NewIntrospectVerifier("", "secret", nil); err == nil {
		t.Fatal("expected missing url error")
	}
	if _, err := NewIntrospectVerifier("http://auth", "", nil); err == nil {
		t.Fatal("expected missing secret error")
	}
}
