package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EngineError reports a non-success response from a translation engine.
type EngineError struct {
	StatusCode int
	Reason     string
	Body       string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("engine status %d (%s): %s", e.StatusCode, e.Reason, e.Body)
	}
	return fmt.Sprintf("engine status %d (%s)", e.StatusCode, e.Reason)
}

// engineReason names the failure class of a DeepL-compatible status code.
func engineReason(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "bad request"
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusTooManyRequests:
		return "rate limited"
	case status == 456:
		return "quota exceeded"
	case status >= 500:
		return "unavailable"
	default:
		return http.StatusText(status)
	}
}

// DeepL calls a DeepL-compatible /v2/translate endpoint.
type DeepL struct {
	baseURL    string
	authKey    string
	httpClient *http.Client
}

// NewDeepL builds a DeepL engine. httpClient may be nil.
func NewDeepL(baseURL, authKey string, httpClient *http.Client) (*DeepL, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("deepl base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &DeepL{baseURL: baseURL, authKey: strings.TrimSpace(authKey), httpClient: httpClient}, nil
}

type deeplRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate implements Engine.
func (d *DeepL) Translate(ctx context.Context, text, from, to string) (string, error) {
	body, err := json.Marshal(deeplRequest{
		Text:       []string{text},
		SourceLang: strings.ToUpper(from),
		TargetLang: strings.ToUpper(to),
	})
	if err != nil {
		return "", fmt.Errorf("encode deepl request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build deepl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authKey != "" {
		req.Header.Set("Authorization", "DeepL-Auth-Key "+d.authKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call deepl: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &EngineError{
			StatusCode: resp.StatusCode,
			Reason:     engineReason(resp.StatusCode),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var payload deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode deepl response: %w", err)
	}
	if len(payload.Translations) == 0 {
		return "", fmt.Errorf("deepl response has no translations")
	}
	return payload.Translations[0].Text, nil
}
