package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeUnsupportedLanguage, "unsupported language xx")
	wrapped := fmt.Errorf("set language: %w", err)

	if !stderrors.Is(wrapped, Sentinel(CodeUnsupportedLanguage)) {
		t.Fatal("expected wrapped error to match code")
	}
	if stderrors.Is(wrapped, Sentinel(CodeUnknownSession)) {
		t.Fatal("expected different code not to match")
	}
	if !HasCode(wrapped, CodeUnsupportedLanguage) {
		t.Fatal("expected HasCode to match")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(CodeTranslationUnavailable, "translate en->ru", cause)
	if got := err.Error(); got != "translate en->ru: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
	err := fmt.Errorf("outer: %w", New(CodeSessionExists, "dup"))
	if got := CodeOf(err); got != CodeSessionExists {
		t.Fatalf("CodeOf = %q, want %q", got, CodeSessionExists)
	}
}

func TestHTTPStatusAndRetryable(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeAuthenticationFailed, http.StatusUnauthorized, false},
		{CodeUnsupportedLanguage, http.StatusBadRequest, false},
		{CodeInvalidMessage, http.StatusBadRequest, false},
		{CodeUnknownSession, http.StatusNotFound, false},
		{CodeSessionExists, http.StatusConflict, false},
		{CodeResourceExhausted, http.StatusTooManyRequests, true},
		{CodeTranslationUnavailable, http.StatusServiceUnavailable, true},
		{CodeUnknown, http.StatusInternalServerError, false},
	}
	for _, tc := range tests {
		err := New(tc.code, "x")
		if got := err.HTTPStatus(); got != tc.status {
			t.Fatalf("%s status = %d, want %d", tc.code, got, tc.status)
		}
		if got := err.Retryable(); got != tc.retryable {
			t.Fatalf("%s retryable = %v, want %v", tc.code, got, tc.retryable)
		}
	}
}
