// Package domain defines the values exchanged between the relay's components.
package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
)

// DefaultMaxMessageRunes caps inbound message length when no limit is configured.
const DefaultMaxMessageRunes = 2000

// Identity is the authenticated principal bound to a connection.
type Identity struct {
	Subject     string
	DisplayName string
	Email       string
}

// Label renders the identity for logs: "name (email)" when a name is known,
// otherwise the subject.
func (i Identity) Label() string {
	name := strings.TrimSpace(i.DisplayName)
	if name == "" {
		return i.Subject
	}
	if email := strings.TrimSpace(i.Email); email != "" {
		return name + " (" + email + ")"
	}
	return name
}

// InboundMessage is a message submitted by a sender.
type InboundMessage struct {
	Text           string
	SourceLanguage string
}

// Validate checks the message text against maxRunes. The text itself is kept
// verbatim; only the emptiness check trims whitespace.
func (m InboundMessage) Validate(maxRunes int) error {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxMessageRunes
	}
	if strings.TrimSpace(m.Text) == "" {
		return apperrors.WithMetadata(apperrors.CodeInvalidMessage, "message text is empty", limitMetadata(maxRunes))
	}
	if utf8.RuneCountInString(m.Text) > maxRunes {
		return apperrors.WithMetadata(apperrors.CodeInvalidMessage, "message text exceeds limit", limitMetadata(maxRunes))
	}
	if strings.TrimSpace(m.SourceLanguage) == "" {
		return apperrors.New(apperrors.CodeInvalidMessage, "message source language is required")
	}
	return nil
}

func limitMetadata(maxRunes int) map[string]string {
	return map[string]string{"Limit": strconv.Itoa(maxRunes)}
}

// OutboundMessage is one rendering of a message for every recipient in Language.
type OutboundMessage struct {
	Text           string
	OriginalText   string
	SourceLanguage string
	Language       string
	Translated     bool
	Sender         Identity
	SentAt         time.Time
}
