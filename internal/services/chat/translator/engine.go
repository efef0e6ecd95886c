package translator

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Engine kinds accepted by NewEngine.
const (
	EngineStub   = "stub"
	EngineDeepL  = "deepl"
	EngineOllama = "ollama"
)

// EngineConfig selects and configures an engine.
type EngineConfig struct {
	Kind      string
	URL       string
	AuthKey   string
	Model     string
	StubDelay time.Duration
}

// NewEngine builds the engine named by cfg.Kind.
func NewEngine(cfg EngineConfig, httpClient *http.Client) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", EngineStub:
		return NewStub(cfg.StubDelay), nil
	case EngineDeepL:
		return NewDeepL(cfg.URL, cfg.AuthKey, httpClient)
	case EngineOllama:
		return NewOllama(cfg.URL, cfg.Model, httpClient)
	default:
		return nil, fmt.Errorf("unknown translation engine %q", cfg.Kind)
	}
}
