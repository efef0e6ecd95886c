package translator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
)

// Stub returns deterministic translations for local runs and tests.
type Stub struct {
	// Dictionary maps target language, then source text, to a translation.
	// Missing entries render as "[<to>] " + text.
	Dictionary map[string]map[string]string
	// Delay simulates engine latency.
	Delay time.Duration

	calls atomic.Int64
}

// NewStub returns a stub with the built-in demo dictionary.
func NewStub(delay time.Duration) *Stub {
	return &Stub{
		Delay: delay,
		Dictionary: map[string]map[string]string{
			"ru": {"Hello world": "Привет, мир", "Good morning": "Доброе утро"},
			"fr": {"Hello world": "Bonjour le monde", "Good morning": "Bonjour"},
			"de": {"Hello world": "Hallo Welt", "Good morning": "Guten Morgen"},
			"es": {"Hello world": "Hola mundo", "Good morning": "Buenos días"},
		},
	}
}

// Translate implements Engine.
func (s *Stub) Translate(ctx context.Context, text, from, to string) (string, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	base := strings.ToLower(to)
	if i := strings.IndexByte(base, '-'); i > 0 {
		base = base[:i]
	}
	if dict, ok := s.Dictionary[base]; ok {
		if translated, ok := dict[text]; ok {
			return translated, nil
		}
	}
	return "[" + to + "] " + text, nil
}

// Calls reports how many translations were requested.
func (s *Stub) Calls() int64 {
	return s.calls.Load()
}
