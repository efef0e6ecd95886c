// Package translator adapts external machine translation engines to the
// relay's supported language set.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	"github.com/louisbranch/babel.chat/internal/platform/timeouts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/babel.chat/internal/services/chat/translator"

// Engine performs a single translation call with engine-specific codes.
type Engine interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, text, from, to string) (string, error)

// Translate implements Engine.
func (fn EngineFunc) Translate(ctx context.Context, text, from, to string) (string, error) {
	return fn(ctx, text, from, to)
}

// DefaultTargetVariants maps base codes to the regional variant engines expect
// as a translation target.
var DefaultTargetVariants = map[string]string{
	"en": "en-GB",
	"pt": "pt-PT",
}

// Options configures a Client.
type Options struct {
	Supported       []string
	DefaultLanguage string
	// TargetVariants overrides DefaultTargetVariants when non-nil.
	TargetVariants map[string]string
	Timeout        time.Duration
}

// Client normalizes language codes and invokes the engine. It never caches.
type Client struct {
	engine    Engine
	languages *Languages
	variants  map[string]string
	timeout   time.Duration
}

// NewClient builds a Client around engine.
func NewClient(engine Engine, opts Options) (*Client, error) {
	if engine == nil {
		return nil, fmt.Errorf("translation engine is required")
	}
	languages, err := NewLanguages(opts.Supported, opts.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	variants := opts.TargetVariants
	if variants == nil {
		variants = DefaultTargetVariants
	}
	normalized := make(map[string]string, len(variants))
	for base, variant := range variants {
		normalized[strings.ToLower(strings.TrimSpace(base))] = strings.TrimSpace(variant)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = timeouts.Translate
	}
	return &Client{engine: engine, languages: languages, variants: normalized, timeout: timeout}, nil
}

// Normalize maps code onto a supported canonical code.
func (c *Client) Normalize(code string) (string, error) {
	return c.languages.Normalize(code)
}

// Supported returns the supported canonical codes.
func (c *Client) Supported() []string {
	return c.languages.Codes()
}

// DefaultLanguage returns the fallback language for new sessions.
func (c *Client) DefaultLanguage() string {
	return c.languages.Default()
}

// Translate renders text from source into target. Engine failures and
// timeouts surface as TRANSLATION_UNAVAILABLE.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	from, err := c.languages.Normalize(source)
	if err != nil {
		return "", err
	}
	to, err := c.languages.Normalize(target)
	if err != nil {
		return "", err
	}
	engineTarget := to
	if variant, ok := c.variants[to]; ok && variant != "" {
		engineTarget = variant
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "translator.Translate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("translate.source", from),
		attribute.String("translate.target", engineTarget),
		attribute.Int("translate.text_len", len(text)),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	translated, err := c.engine.Translate(callCtx, text, from, engineTarget)
	if err == nil && strings.TrimSpace(translated) == "" {
		err = fmt.Errorf("engine returned empty translation")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translate failed")
		return "", apperrors.Wrap(
			apperrors.CodeTranslationUnavailable,
			fmt.Sprintf("translate %s->%s", from, engineTarget),
			err,
		)
	}
	return translated, nil
}
