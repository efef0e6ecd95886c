package translator

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultSupported lists the languages offered when none are configured.
var DefaultSupported = []string{"en", "ru", "fr", "de", "es", "it", "pt", "uk", "pl", "nl", "ja", "zh", "ko", "tr"}

// DefaultLanguage is the fallback language for new sessions.
const DefaultLanguage = "en"

// Languages is an immutable set of supported language codes.
type Languages struct {
	codes   []string
	tags    []language.Tag
	matcher language.Matcher
	def     string
}

// NewLanguages validates codes and def. Codes are reduced to lowercase base
// form; def must be one of them.
func NewLanguages(codes []string, def string) (*Languages, error) {
	if len(codes) == 0 {
		codes = DefaultSupported
	}
	l := &Languages{}
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		tag, err := language.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse supported language %q: %w", raw, err)
		}
		base, _ := tag.Base()
		code := strings.ToLower(base.String())
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		l.codes = append(l.codes, code)
		l.tags = append(l.tags, language.Make(code))
	}
	l.matcher = language.NewMatcher(l.tags)

	if strings.TrimSpace(def) == "" {
		def = DefaultLanguage
	}
	canonical, err := l.Normalize(def)
	if err != nil {
		return nil, fmt.Errorf("default language %q: %w", def, err)
	}
	l.def = canonical
	return l, nil
}

// Normalize maps code onto the supported set: "EN" and "en-US" become "en".
func (l *Languages) Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", unsupported(code)
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", unsupported(code)
	}
	_, index, confidence := l.matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(l.codes) {
		return "", unsupported(code)
	}
	requested, _ := tag.Base()
	matched, _ := l.tags[index].Base()
	if requested != matched {
		return "", unsupported(code)
	}
	return l.codes[index], nil
}

// Codes returns the supported codes in configuration order.
func (l *Languages) Codes() []string {
	return append([]string(nil), l.codes...)
}

// Default returns the fallback language.
func (l *Languages) Default() string {
	return l.def
}

// DisplayName returns the English name of a language code, or the code itself
// when unknown.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// NativeName returns the language's name in that language, e.g. "русский"
// for ru, falling back to DisplayName.
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return DisplayName(code)
}

func unsupported(code string) error {
	return apperrors.WithMetadata(
		apperrors.CodeUnsupportedLanguage,
		fmt.Sprintf("unsupported language %q", code),
		map[string]string{"Language": code},
	)
}
