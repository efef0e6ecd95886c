package translator

import (
	"reflect"
	"testing"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
)

func TestNormalize(t *testing.T) {
	langs, err := NewLanguages([]string{"en", "ru", "fr", "pt"}, "en")
	if err != nil {
		t.Fatalf("new languages: %v", err)
	}
	tests := map[string]string{
		"en":    "en",
		"EN":    "en",
		"en-US": "en",
		"en-GB": "en",
		" ru ":  "ru",
		"pt-BR": "pt",
		"fr-CA": "fr",
	}
	for input, want := range tests {
		got, err := langs.Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeRejectsUnsupported(t *testing.T) {
	langs, err := NewLanguages([]string{"en", "ru"}, "en")
	if err != nil {
		t.Fatalf("new languages: %v", err)
	}
	for _, input := range []string{"", "  ", "de", "xx-not-a-tag", "sw"} {
		_, err := langs.Normalize(input)
		if !apperrors.HasCode(err, apperrors.CodeUnsupportedLanguage) {
			t.Fatalf("Normalize(%q) err = %v, want unsupported", input, err)
		}
	}
}

func TestNewLanguagesDedupesAndDefaults(t *testing.T) {
	langs, err := NewLanguages([]string{"en", "EN-us", "ru"}, "")
	if err != nil {
		t.Fatalf("new languages: %v", err)
	}
	if got := langs.Codes(); !reflect.DeepEqual(got, []string{"en", "ru"}) {
		t.Fatalf("Codes = %v", got)
	}
	if langs.Default() != "en" {
		t.Fatalf("Default = %q, want en", langs.Default())
	}
}

func TestNewLanguagesRejectsUnsupportedDefault(t *testing.T) {
	if _, err := NewLanguages([]string{"ru", "fr"}, "en"); err == nil {
		t.Fatal("expected default outside supported set to fail")
	}
}

func TestNewLanguagesFallsBackToDefaultSet(t *testing.T) {
	langs, err := NewLanguages(nil, "")
	if err != nil {
		t.Fatalf("new languages: %v", err)
	}
	if len(langs.Codes()) != len(DefaultSupported) {
		t.Fatalf("Codes = %v, want default set", langs.Codes())
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("ru"); got != "Russian" {
		t.Fatalf("DisplayName(ru) = %q", got)
	}
	if got := DisplayName("not a tag"); got != "not a tag" {
		t.Fatalf("DisplayName(invalid) = %q", got)
	}
}

func TestNativeName(t *testing.T) {
	if got := NativeName("ru"); got != "русский" {
		t.Fatalf("NativeName(ru) = %q", got)
	}
	if got := NativeName("not a tag"); got != "not a tag" {
		t.Fatalf("NativeName(invalid) = %q", got)
	}
}
