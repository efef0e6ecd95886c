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

const defaultOllamaModel = "aya-expanse:8b"

// Ollama prompts a local model through the /api/generate endpoint.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama builds an Ollama engine. An empty model selects aya-expanse.
func NewOllama(baseURL, model string, httpClient *http.Client) (*Ollama, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ollama base url is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Ollama{baseURL: baseURL, model: model, httpClient: httpClient}, nil
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func translationPrompt(text, from, to string) string {
	return fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, without quotes or notes.\n\n%s",
		DisplayName(from), DisplayName(to), text,
	)
}

// Translate implements Engine.
func (o *Ollama) Translate(ctx context.Context, text, from, to string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		Prompt:  translationPrompt(text, from, to),
		Stream:  false,
		Options: map[string]any{"temperature": 0.1},
	})
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &EngineError{
			StatusCode: resp.StatusCode,
			Reason:     engineReason(resp.StatusCode),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var payload ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return cleanModelOutput(payload.Response), nil
}

// cleanModelOutput strips whitespace and one layer of wrapping quotes.
func cleanModelOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}, {"«", "»"}, {"'", "'"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}
