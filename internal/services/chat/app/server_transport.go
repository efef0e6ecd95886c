package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	errcatalog "github.com/louisbranch/babel.chat/internal/platform/errors/i18n"
	"github.com/louisbranch/babel.chat/internal/platform/i18n/catalog"
	"github.com/louisbranch/babel.chat/internal/platform/requestctx"
	"github.com/louisbranch/babel.chat/internal/services/chat/authn"
	"github.com/louisbranch/babel.chat/internal/services/chat/cache"
	"github.com/louisbranch/babel.chat/internal/services/chat/dispatch"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
	"github.com/louisbranch/babel.chat/internal/services/chat/registry"
	"github.com/louisbranch/babel.chat/internal/services/chat/translator"
	"golang.org/x/net/websocket"
)

type identityAuthenticator interface {
	Authenticate(ctx context.Context, credential string) (domain.Identity, error)
}

type languageResolver interface {
	Normalize(code string) (string, error)
	Supported() []string
	DefaultLanguage() string
}

type messageDispatcher interface {
	Dispatch(ctx context.Context, sender domain.Identity, msg domain.InboundMessage) (dispatch.Report, error)
}

// Deps wires the chat routes to their collaborators.
type Deps struct {
	Authenticator identityAuthenticator
	Languages     languageResolver
	Registry      *registry.Registry
	Dispatcher    messageDispatcher
	Cache         *cache.Cache

	AdminSecret     string
	MaxMessageRunes int
	WriteTimeout    time.Duration

	// BaseContext outlives individual connections; dispatches and
	// connection teardown hang off it.
	BaseContext context.Context
	NewID       func() (string, error)
}

type wsConnectionContextKey struct{}

// NewHandler creates the chat routes.
func NewHandler(deps Deps) http.Handler {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	if deps.NewID == nil {
		deps.NewID = newConnectionID
	}
	if deps.MaxMessageRunes <= 0 {
		deps.MaxMessageRunes = domain.DefaultMaxMessageRunes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		wc, ok := conn.Request().Context().Value(wsConnectionContextKey{}).(*wsConnection)
		if !ok {
			_ = conn.Close()
			return
		}
		wc.serve(conn)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if deps.Authenticator == nil {
			http.Error(w, "websocket auth is not configured", http.StatusServiceUnavailable)
			return
		}

		wc := newWSConnection(deps)
		wc.transition(stateAuthenticating)
		identity, err := deps.Authenticator.Authenticate(r.Context(), authn.CredentialFromRequest(r))
		if err != nil {
			wc.transition(stateClosed)
			log.Printf("chat: websocket unauthorized: host=%q remote=%s err=%v", r.Host, r.RemoteAddr, err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		wc.identity = identity
		wc.requestedLanguage = strings.TrimSpace(r.URL.Query().Get("lang"))

		ctx := context.WithValue(r.Context(), wsConnectionContextKey{}, wc)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	registerAdminRoutes(mux, deps)
	return mux
}

type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticating
	stateActive
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAuthenticating:
		return "authenticating"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var allowedTransitions = map[connState][]connState{
	stateConnecting:     {stateAuthenticating, stateClosed},
	stateAuthenticating: {stateActive, stateClosed},
	stateActive:         {stateClosing},
	stateClosing:        {stateClosed},
}

// wsConnection drives one client through
// connecting -> authenticating -> active -> closing -> closed.
type wsConnection struct {
	deps              Deps
	state             atomic.Int32
	id                string
	identity          domain.Identity
	requestedLanguage string
	peer              *wsPeer
	teardown          sync.Once
}

func newWSConnection(deps Deps) *wsConnection {
	return &wsConnection{deps: deps}
}

func (c *wsConnection) currentState() connState {
	return connState(c.state.Load())
}

// transition moves to next when the state machine allows it.
func (c *wsConnection) transition(next connState) bool {
	for {
		current := c.currentState()
		allowed := false
		for _, candidate := range allowedTransitions[current] {
			if candidate == next {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
		if c.state.CompareAndSwap(int32(current), int32(next)) {
			return true
		}
	}
}

func (c *wsConnection) serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	connectionID, err := c.deps.NewID()
	if err != nil {
		log.Printf("chat: generate connection id: %v", err)
		c.transition(stateClosed)
		return
	}
	c.id = connectionID
	c.peer = newWSPeer(conn, c.deps.WriteTimeout)

	if _, err := c.deps.Registry.Register(c.id, c.identity, c.peer); err != nil {
		log.Printf("chat: register connection %s: %v", c.id, err)
		c.transition(stateClosed)
		return
	}
	c.transition(stateActive)
	defer c.close()

	stop := context.AfterFunc(c.deps.BaseContext, func() {
		c.close()
		_ = conn.Close()
	})
	defer stop()

	if c.requestedLanguage != "" {
		c.applyInitialLanguage()
	}
	c.sendWelcome()
	c.readLoop(conn)
}

func (c *wsConnection) applyInitialLanguage() {
	lang, err := c.deps.Languages.Normalize(c.requestedLanguage)
	if err != nil {
		log.Printf("chat: connection %s requested unsupported language %q, keeping default", c.id, c.requestedLanguage)
		return
	}
	if err := c.deps.Registry.SetLanguage(c.id, lang); err != nil {
		log.Printf("chat: set initial language for %s: %v", c.id, err)
	}
}

// close unregisters the session exactly once.
func (c *wsConnection) close() {
	c.teardown.Do(func() {
		c.transition(stateClosing)
		c.peer.close()
		c.deps.Registry.Unregister(c.id)
		c.transition(stateClosed)
	})
}

func (c *wsConnection) language() string {
	if session, ok := c.deps.Registry.Get(c.id); ok {
		return session.Language
	}
	return c.deps.Languages.DefaultLanguage()
}

func (c *wsConnection) sendWelcome() {
	lang := c.language()
	name := c.identity.DisplayName
	if strings.TrimSpace(name) == "" {
		name = c.identity.Subject
	}
	_ = c.peer.writeFrame(wsFrame{
		Type: "chat.welcome",
		Payload: mustJSON(welcomePayload{
			ConnectionID:       c.id,
			User:               senderViewFrom(c.identity),
			Language:           lang,
			SupportedLanguages: c.deps.Languages.Supported(),
			ServerTime:         time.Now().UTC().Format(time.RFC3339),
			Text: catalog.Default().Text(lang, "chat.welcome", map[string]any{
				"Name":     name,
				"Language": translator.NativeName(lang),
			}),
		}),
	})
}

func (c *wsConnection) readLoop(conn io.Reader) {
	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || c.currentState() != stateActive {
				return
			}
			decodeErrors++
			c.writeError("", apperrors.New(apperrors.CodeInvalidArgument, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			c.writeError(frame.RequestID, apperrors.New(apperrors.CodeInvalidArgument, "payload too large"))
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			c.writeError(frame.RequestID, apperrors.New(apperrors.CodeResourceExhausted, "rate limit exceeded"))
			return
		}

		switch frame.Type {
		case "chat.send":
			c.handleSend(frame)
		case "chat.language":
			c.handleLanguage(frame)
		default:
			c.writeError(frame.RequestID, apperrors.New(apperrors.CodeInvalidArgument, "unsupported frame type"))
		}
	}
}

func (c *wsConnection) handleSend(frame wsFrame) {
	var payload sendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.writeError(frame.RequestID, apperrors.New(apperrors.CodeInvalidArgument, "invalid send payload"))
		return
	}

	source := c.language()
	if requested := strings.TrimSpace(payload.SourceLanguage); requested != "" {
		normalized, err := c.deps.Languages.Normalize(requested)
		if err != nil {
			c.writeError(frame.RequestID, err)
			return
		}
		source = normalized
	}

	msg := domain.InboundMessage{Text: payload.Text, SourceLanguage: source}
	if err := msg.Validate(c.deps.MaxMessageRunes); err != nil {
		c.writeError(frame.RequestID, err)
		return
	}

	_ = c.peer.writeFrame(wsFrame{
		Type:      "chat.ack",
		RequestID: frame.RequestID,
		Payload:   mustJSON(ackEnvelope{Result: ackResult{Status: "ok"}}),
	})

	ctx := requestctx.WithConnection(c.deps.BaseContext, c.id, c.identity.Subject)
	report, err := c.deps.Dispatcher.Dispatch(ctx, c.identity, msg)
	if err != nil {
		log.Printf("chat: dispatch from %s: %v", c.id, err)
		return
	}
	if report.Failed > 0 || report.Fallbacks > 0 {
		log.Printf("chat: dispatch from %s delivered=%d failed=%d fallbacks=%d", c.id, report.Delivered, report.Failed, report.Fallbacks)
	}
}

func (c *wsConnection) handleLanguage(frame wsFrame) {
	var payload languagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.writeError(frame.RequestID, apperrors.New(apperrors.CodeInvalidArgument, "invalid language payload"))
		return
	}

	lang, err := c.deps.Languages.Normalize(payload.Code)
	if err != nil {
		c.writeError(frame.RequestID, err)
		return
	}
	if err := c.deps.Registry.SetLanguage(c.id, lang); err != nil {
		log.Printf("chat: set language for %s: %v", c.id, err)
		return
	}

	_ = c.peer.writeFrame(wsFrame{
		Type:      "chat.ack",
		RequestID: frame.RequestID,
		Payload: mustJSON(ackEnvelope{Result: ackResult{
			Status:   "ok",
			Language: lang,
			Text: catalog.Default().Text(lang, "chat.language_changed", map[string]any{
				"Language": translator.NativeName(lang),
			}),
		}}),
	})
}

// writeError renders err in the connection's current language.
func (c *wsConnection) writeError(requestID string, err error) {
	code := apperrors.CodeOf(err)
	_ = writeWSError(c.peer, requestID, code, errcatalog.GetCatalog(c.language()).Localize(err))
}

func writeWSError(peer *wsPeer, requestID string, code apperrors.Code, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "chat.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      string(code),
				Message:   message,
				Retryable: code.Retryable(),
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("chat: marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
