// Package dispatch fans a message out to every live session, rendering it once
// per distinct recipient language.
package dispatch

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/louisbranch/babel.chat/internal/platform/requestctx"
	"github.com/louisbranch/babel.chat/internal/services/chat/cache"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
	"github.com/louisbranch/babel.chat/internal/services/chat/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/louisbranch/babel.chat/internal/services/chat/dispatch"

// Sessions provides point-in-time views of live sessions.
type Sessions interface {
	Snapshot() []registry.Session
}

// Translator renders text between two supported languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Cache memoizes translations.
type Cache interface {
	Lookup(source, target, text string) (string, bool)
	// Peek reads without counting toward cache statistics.
	Peek(source, target, text string) (string, bool)
	Store(source, target, text, translated string)
}

// Options tunes a Dispatcher.
type Options struct {
	MaxMessageRunes int
	Now             func() time.Time
}

// Report summarizes one dispatch.
type Report struct {
	Recipients     int
	Languages      int
	TranslateCalls int
	CacheHits      int
	Fallbacks      int
	Delivered      int
	Failed         int
}

// Dispatcher is safe for concurrent use; concurrent dispatches share in-flight
// translations of the same text.
type Dispatcher struct {
	sessions   Sessions
	translator Translator
	cache      Cache
	flights    singleflight.Group
	maxRunes   int
	now        func() time.Time
}

// New builds a Dispatcher.
func New(sessions Sessions, translator Translator, cache Cache, opts Options) *Dispatcher {
	if opts.MaxMessageRunes <= 0 {
		opts.MaxMessageRunes = domain.DefaultMaxMessageRunes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		sessions:   sessions,
		translator: translator,
		cache:      cache,
		maxRunes:   opts.MaxMessageRunes,
		now:        opts.Now,
	}
}

type rendering struct {
	text       string
	translated bool
	called     bool
	cacheHit   bool
	fallback   bool
}

// Dispatch delivers msg to every live session in the session's language. The
// returned error only reports an invalid message; translation and delivery
// failures are absorbed and counted in the Report.
func (d *Dispatcher) Dispatch(ctx context.Context, sender domain.Identity, msg domain.InboundMessage) (Report, error) {
	if err := msg.Validate(d.maxRunes); err != nil {
		return Report{}, err
	}
	source := strings.ToLower(strings.TrimSpace(msg.SourceLanguage))
	sentAt := d.now().UTC()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "dispatch.Dispatch")
	defer span.End()

	sessions := d.sessions.Snapshot()
	partitions := make(map[string][]registry.Session)
	for _, session := range sessions {
		partitions[session.Language] = append(partitions[session.Language], session)
	}
	languages := make([]string, 0, len(partitions))
	for lang := range partitions {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	report := Report{Recipients: len(sessions), Languages: len(languages)}

	renderings := make([]rendering, len(languages))
	resolve, resolveCtx := errgroup.WithContext(ctx)
	for i, lang := range languages {
		resolve.Go(func() error {
			renderings[i] = d.render(resolveCtx, source, lang, msg.Text)
			return nil
		})
	}
	_ = resolve.Wait()

	var delivered, failed atomic.Int64
	deliver, deliverCtx := errgroup.WithContext(ctx)
	for i, lang := range languages {
		r := renderings[i]
		switch {
		case r.called:
			report.TranslateCalls++
		case r.cacheHit:
			report.CacheHits++
		}
		if r.fallback {
			report.Fallbacks++
		}
		out := domain.OutboundMessage{
			Text:           r.text,
			OriginalText:   msg.Text,
			SourceLanguage: source,
			Language:       lang,
			Translated:     r.translated,
			Sender:         sender,
			SentAt:         sentAt,
		}
		recipients := partitions[lang]
		deliver.Go(func() error {
			for _, session := range recipients {
				if err := session.Outbox.Deliver(deliverCtx, out); err != nil {
					failed.Add(1)
					log.Printf("chat: deliver to %s (%s) failed: %v", session.ConnectionID, session.Identity.Label(), err)
					continue
				}
				delivered.Add(1)
			}
			return nil
		})
	}
	_ = deliver.Wait()

	report.Delivered = int(delivered.Load())
	report.Failed = int(failed.Load())

	span.SetAttributes(
		attribute.String("chat.source_language", source),
		attribute.StringSlice("chat.languages", languages),
		attribute.Int("chat.recipients", report.Recipients),
		attribute.Int("chat.translate_calls", report.TranslateCalls),
		attribute.Int("chat.cache_hits", report.CacheHits),
		attribute.Int("chat.fallbacks", report.Fallbacks),
		attribute.Int("chat.delivery_failures", report.Failed),
	)
	return report, nil
}

// render resolves the text shown to recipients in target.
func (d *Dispatcher) render(ctx context.Context, source, target, text string) rendering {
	if strings.EqualFold(target, source) {
		return rendering{text: text}
	}
	if translated, ok := d.cache.Lookup(source, target, text); ok {
		return rendering{text: translated, translated: true, cacheHit: true}
	}

	called := false
	key := source + "|" + target + "|" + cache.NormalizeText(text)
	value, err, _ := d.flights.Do(key, func() (any, error) {
		// A flight that just finished may have filled the cache; the miss
		// was already counted above.
		if translated, ok := d.cache.Peek(source, target, text); ok {
			return translated, nil
		}
		called = true
		translated, err := d.translator.Translate(ctx, text, source, target)
		if err != nil {
			return nil, err
		}
		d.cache.Store(source, target, text, translated)
		return translated, nil
	})
	if err != nil {
		log.Printf("chat: translate %s->%s for %s failed, delivering original: %v",
			source, target, origin(ctx), err)
		return rendering{text: text, called: called, fallback: true}
	}
	return rendering{text: value.(string), translated: true, called: called, cacheHit: !called}
}

func origin(ctx context.Context) string {
	parts := []string{}
	if id := requestctx.ConnectionIDFromContext(ctx); id != "" {
		parts = append(parts, "connection "+id)
	}
	if subject := requestctx.SubjectFromContext(ctx); subject != "" {
		parts = append(parts, "subject "+subject)
	}
	if len(parts) == 0 {
		return "unknown sender"
	}
	return strings.Join(parts, " ")
}
