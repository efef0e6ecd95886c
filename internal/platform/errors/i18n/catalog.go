// Package i18n renders domain errors as user-facing, localized messages.
package i18n

import (
	"strings"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	"github.com/louisbranch/babel.chat/internal/platform/i18n/catalog"
)

const keyPrefix = "error."

// Catalog renders error codes for one locale.
type Catalog struct {
	locale string
	bundle *catalog.Bundle
}

// GetCatalog returns the catalog for the given locale backed by the embedded
// bundle. An empty locale selects the base locale.
func GetCatalog(locale string) *Catalog {
	return NewCatalog(locale, catalog.Default())
}

// NewCatalog binds a locale to an explicit bundle.
func NewCatalog(locale string, bundle *catalog.Bundle) *Catalog {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = catalog.BaseLocale
	}
	return &Catalog{locale: locale, bundle: bundle}
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with metadata as template data.
// Falls back to the error code itself if no message is defined.
func (c *Catalog) Format(code apperrors.Code, metadata map[string]string) string {
	data := make(map[string]any, len(metadata))
	for key, value := range metadata {
		data[key] = value
	}
	if msg, ok := c.bundle.Message(c.locale, keyPrefix+string(code), data); ok {
		return msg
	}
	return string(code)
}

// Localize renders err for the catalog locale. Errors without a domain code
// render as the generic unknown message.
func (c *Catalog) Localize(err error) string {
	if err == nil {
		return ""
	}
	domainErr, ok := apperrors.As(err)
	if !ok {
		return c.Format(apperrors.CodeUnknown, nil)
	}
	return c.Format(domainErr.Code, domainErr.Metadata)
}
