// Package catalog loads the relay's user-facing message catalog.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en"

//go:embed locales/active.*.toml
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Bundle wraps a go-i18n bundle with base-locale fallback.
type Bundle struct {
	bundle  *i18n.Bundle
	locales []string
}

// Default returns the process-wide embedded catalog bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads catalog files embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	sub, err := fs.Sub(embeddedCatalogFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return LoadFromFS(sub)
}

// LoadFromFS loads active.<locale>.toml files from the root of catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "active.*.toml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	locales := make([]string, 0, len(paths))
	hasBase := false
	for _, p := range paths {
		file, err := bundle.LoadMessageFileFS(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", p, err)
		}
		locale := file.Tag.String()
		if locale == BaseLocale {
			hasBase = true
		}
		locales = append(locales, locale)
	}
	if !hasBase {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	sort.Strings(locales)

	return &Bundle{bundle: bundle, locales: locales}, nil
}

// Locales returns all loaded locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.locales...)
}

// HasLocale reports whether locale has its own catalog file.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	locale = strings.TrimSpace(locale)
	for _, l := range b.locales {
		if l == locale {
			return true
		}
	}
	return false
}

// Message renders the message identified by id for locale, falling back to the
// base locale. The boolean is false when no catalog defines id.
func (b *Bundle) Message(locale, id string, data map[string]any) (string, bool) {
	if b == nil {
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	languages := []string{}
	if locale = strings.TrimSpace(locale); locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, BaseLocale)

	localizer := i18n.NewLocalizer(b.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if msg != "" {
		return msg, true
	}
	if err != nil {
		log.Printf("i18n: localize %s (locales=%v): %v", id, languages, err)
	}
	return "", false
}

// Text renders id for locale, or returns id itself when undefined.
func (b *Bundle) Text(locale, id string, data map[string]any) string {
	if msg, ok := b.Message(locale, id, data); ok {
		return msg
	}
	return id
}

func mustLoadEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return bundle
}
