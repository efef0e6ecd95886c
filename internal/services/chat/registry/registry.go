// Package registry tracks live chat sessions and their language preference.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

// Outbox delivers rendered messages to one connection.
type Outbox interface {
	Deliver(ctx context.Context, msg domain.OutboundMessage) error
}

// Session is a value copy of a live connection's state.
type Session struct {
	ConnectionID string
	Identity     domain.Identity
	Language     string
	ConnectedAt  time.Time
	Outbox       Outbox
}

// Registry is safe for concurrent use.
type Registry struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	defaultLanguage string
	now             func() time.Time
}

// New returns an empty registry whose sessions start on defaultLanguage.
func New(defaultLanguage string) *Registry {
	return &Registry{
		sessions:        make(map[string]*Session),
		defaultLanguage: defaultLanguage,
		now:             time.Now,
	}
}

// Register admits a new session for connectionID.
func (r *Registry) Register(connectionID string, identity domain.Identity, outbox Outbox) (Session, error) {
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return Session{}, apperrors.New(apperrors.CodeInvalidArgument, "connection id is required")
	}
	if outbox == nil {
		return Session{}, apperrors.New(apperrors.CodeInvalidArgument, "outbox is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionID]; ok {
		return Session{}, apperrors.New(apperrors.CodeSessionExists, fmt.Sprintf("session %s already registered", connectionID))
	}
	session := &Session{
		ConnectionID: connectionID,
		Identity:     identity,
		Language:     r.defaultLanguage,
		ConnectedAt:  r.now(),
		Outbox:       outbox,
	}
	r.sessions[connectionID] = session
	return *session, nil
}

// Unregister removes connectionID and reports whether it was present.
func (r *Registry) Unregister(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionID]; !ok {
		return false
	}
	delete(r.sessions, connectionID)
	return true
}

// SetLanguage updates the language preference of connectionID. The language is
// expected to be normalized already.
func (r *Registry) SetLanguage(connectionID, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[connectionID]
	if !ok {
		return apperrors.New(apperrors.CodeUnknownSession, fmt.Sprintf("session %s is not registered", connectionID))
	}
	session.Language = lang
	return nil
}

// Get returns a copy of the session for connectionID.
func (r *Registry) Get(connectionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// Snapshot returns copies of every live session ordered by connect time, then
// connection id.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, *session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Languages counts live sessions per language.
func (r *Registry) Languages() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, session := range r.sessions {
		out[session.Language]++
	}
	return out
}
