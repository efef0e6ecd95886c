package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/babel.chat/internal/platform/grpc"
	"github.com/louisbranch/babel.chat/internal/platform/id"
	"github.com/louisbranch/babel.chat/internal/platform/timeouts"
	"github.com/louisbranch/babel.chat/internal/services/chat/authn"
	"github.com/louisbranch/babel.chat/internal/services/chat/cache"
	"github.com/louisbranch/babel.chat/internal/services/chat/dispatch"
	"github.com/louisbranch/babel.chat/internal/services/chat/registry"
	"github.com/louisbranch/babel.chat/internal/services/chat/translator"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	healthServiceName = "babel.chat"
)

// Config defines the inputs for the chat relay process.
type Config struct {
	HTTPAddr    string
	HealthAddr  string
	AdminSecret string

	MaxMessageRunes int

	Auth        authn.Config
	AuthTimeout time.Duration

	Engine     translator.EngineConfig
	Translator translator.Options

	CacheMaxEntries    int
	CacheTTL           time.Duration
	CachePruneInterval time.Duration

	WriteTimeout      time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the chat HTTP/WebSocket process and its optional gRPC health
// listener.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	pruneInterval   time.Duration
	httpServer      *http.Server
	health          *platformgrpc.HealthServer
	cache           *cache.Cache
	baseCtx         context.Context
	baseCancel      context.CancelFunc
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type sendPayload struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
}

type languagePayload struct {
	Code string `json:"code"`
}

type welcomePayload struct {
	ConnectionID       string     `json:"connection_id"`
	User               senderView `json:"user"`
	Language           string     `json:"language"`
	SupportedLanguages []string   `json:"supported_languages"`
	ServerTime         string     `json:"server_time"`
	Text               string     `json:"text"`
}

type messageEnvelope struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Text           string     `json:"text"`
	OriginalText   string     `json:"original_text"`
	SourceLanguage string     `json:"source_language"`
	Language       string     `json:"language"`
	Translated     bool       `json:"translated"`
	Sender         senderView `json:"sender"`
	SentAt         string     `json:"sent_at"`
}

type senderView struct {
	Subject     string `json:"subject"`
	DisplayName string `json:"display_name,omitempty"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status   string `json:"status"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text,omitempty"`
}

// NewServer builds a configured chat server.
func NewServer(config Config) (*Server, error) {
	return NewServerWithContext(context.Background(), config)
}

// NewServerWithContext builds a configured chat server with an explicit
// context, used for identity provider discovery.
func NewServerWithContext(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.CachePruneInterval <= 0 {
		config.CachePruneInterval = timeouts.CachePrune
	}

	engine, err := translator.NewEngine(config.Engine, nil)
	if err != nil {
		return nil, fmt.Errorf("build translation engine: %w", err)
	}
	client, err := translator.NewClient(engine, config.Translator)
	if err != nil {
		return nil, fmt.Errorf("build translation client: %w", err)
	}
	verifier, err := authn.NewVerifier(ctx, config.Auth)
	if err != nil {
		return nil, fmt.Errorf("build auth verifier: %w", err)
	}

	sessions := registry.New(client.DefaultLanguage())
	translations := cache.New(cache.Options{MaxEntries: config.CacheMaxEntries, TTL: config.CacheTTL})
	dispatcher := dispatch.New(sessions, client, translations, dispatch.Options{MaxMessageRunes: config.MaxMessageRunes})

	var health *platformgrpc.HealthServer
	if addr := strings.TrimSpace(config.HealthAddr); addr != "" {
		health, err = platformgrpc.ListenHealth(addr)
		if err != nil {
			return nil, err
		}
	}

	baseCtx, baseCancel := context.WithCancel(context.WithoutCancel(ctx))
	handler := NewHandler(Deps{
		Authenticator:   authn.New(verifier, config.AuthTimeout),
		Languages:       client,
		Registry:        sessions,
		Dispatcher:      dispatcher,
		Cache:           translations,
		AdminSecret:     config.AdminSecret,
		MaxMessageRunes: config.MaxMessageRunes,
		WriteTimeout:    config.WriteTimeout,
		BaseContext:     baseCtx,
	})

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		pruneInterval:   config.CachePruneInterval,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		health:     health,
		cache:      translations,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}, nil
}

// Run creates and serves a chat server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServerWithContext(ctx, config)
	if err != nil {
		return fmt.Errorf("init chat server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve chat: %w", err)
	}
	return nil
}

// HealthAddr returns the bound gRPC health address, or "" when disabled.
func (s *Server) HealthAddr() string {
	if s == nil {
		return ""
	}
	return s.health.Addr()
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("chat server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}

	go s.cache.Run(s.baseCtx, s.pruneInterval)

	serveErr := make(chan error, 2)
	log.Printf("chat server listening on %s", listener.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()
	if s.health != nil {
		log.Printf("chat health listening on %s", s.health.Addr())
		go func() {
			if err := s.health.Serve(); err != nil {
				serveErr <- err
			}
		}()
		s.health.SetServing(healthServiceName, true)
	}

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-serveErr:
		_ = s.shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func (s *Server) shutdown() error {
	s.health.SetServing(healthServiceName, false)
	// Hijacked websocket connections are not tracked by http.Server; closing
	// the base context closes them.
	s.baseCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.health.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.baseCancel()
	if s.health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		s.health.Shutdown(ctx)
		cancel()
	}
}

func newConnectionID() (string, error) {
	return id.NewID()
}
