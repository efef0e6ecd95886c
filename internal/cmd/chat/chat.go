// Package chat parses chat command flags and composes transport entrypoints.
package chat

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/babel.chat/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/babel.chat/internal/platform/grpc"
	"github.com/louisbranch/babel.chat/internal/platform/timeouts"
	server "github.com/louisbranch/babel.chat/internal/services/chat/app"
	"github.com/louisbranch/babel.chat/internal/services/chat/authn"
	"github.com/louisbranch/babel.chat/internal/services/chat/translator"
)

// Config holds chat command configuration.
type Config struct {
	HTTPAddr        string `env:"BABEL_CHAT_HTTP_ADDR"         envDefault:":8086"`
	HealthAddr      string `env:"BABEL_CHAT_HEALTH_ADDR"`
	AdminSecret     string `env:"BABEL_CHAT_ADMIN_SECRET"`
	MaxMessageRunes int    `env:"BABEL_CHAT_MAX_MESSAGE_RUNES" envDefault:"2000"`

	AuthKind        string        `env:"BABEL_CHAT_AUTH_KIND"                envDefault:"jwt"`
	JWTSecret       string        `env:"BABEL_CHAT_JWT_SECRET"`
	JWTPublicKeyPEM string        `env:"BABEL_CHAT_JWT_PUBLIC_KEY_FILE,file"`
	JWTIssuer       string        `env:"BABEL_CHAT_JWT_ISSUER"`
	JWTAudience     string        `env:"BABEL_CHAT_JWT_AUDIENCE"`
	OIDCIssuerURL   string        `env:"BABEL_CHAT_OIDC_ISSUER_URL"`
	OIDCClientID    string        `env:"BABEL_CHAT_OIDC_CLIENT_ID"`
	IntrospectURL   string        `env:"BABEL_CHAT_INTROSPECT_URL"`
	ResourceSecret  string        `env:"BABEL_CHAT_OAUTH_RESOURCE_SECRET"`
	AuthTimeout     time.Duration `env:"BABEL_CHAT_AUTH_TIMEOUT"             envDefault:"5s"`

	Engine           string            `env:"BABEL_CHAT_ENGINE"            envDefault:"stub"`
	EngineURL        string            `env:"BABEL_CHAT_ENGINE_URL"`
	EngineAuthKey    string            `env:"BABEL_CHAT_ENGINE_AUTH_KEY"`
	EngineModel      string            `env:"BABEL_CHAT_ENGINE_MODEL"`
	StubDelay        time.Duration     `env:"BABEL_CHAT_STUB_DELAY"`
	Languages        []string          `env:"BABEL_CHAT_LANGUAGES"         envDefault:"en,ru,fr,de,es,it,pt,uk,pl,nl,ja,zh,ko,tr" envSeparator:","`
	DefaultLanguage  string            `env:"BABEL_CHAT_DEFAULT_LANGUAGE"  envDefault:"en"`
	TargetVariants   map[string]string `env:"BABEL_CHAT_TARGET_VARIANTS"   envDefault:"en=en-GB,pt=pt-PT" envKeyValSeparator:"="`
	TranslateTimeout time.Duration     `env:"BABEL_CHAT_TRANSLATE_TIMEOUT" envDefault:"10s"`

	CacheMaxEntries    int           `env:"BABEL_CHAT_CACHE_MAX_ENTRIES"    envDefault:"1000"`
	CacheTTL           time.Duration `env:"BABEL_CHAT_CACHE_TTL"            envDefault:"1h"`
	CachePruneInterval time.Duration `env:"BABEL_CHAT_CACHE_PRUNE_INTERVAL" envDefault:"1m"`

	WriteTimeout    time.Duration `env:"BABEL_CHAT_WRITE_TIMEOUT"    envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"BABEL_CHAT_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Probe checks a running relay's health listener and exits.
	Probe bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "chat HTTP listen address")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.AdminSecret, "admin-secret", cfg.AdminSecret, "secret for admin endpoints (empty disables)")
	fs.IntVar(&cfg.MaxMessageRunes, "max-message-runes", cfg.MaxMessageRunes, "maximum message length in characters")

	fs.StringVar(&cfg.AuthKind, "auth", cfg.AuthKind, "credential verifier: jwt, oidc or introspect")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HS256 signing secret")
	fs.Func("jwt-public-key-file", "PEM file with the EdDSA public key", func(path string) error {
		pem, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return fmt.Errorf("read jwt public key: %w", err)
		}
		cfg.JWTPublicKeyPEM = string(pem)
		return nil
	})
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", cfg.JWTIssuer, "required JWT issuer")
	fs.StringVar(&cfg.JWTAudience, "jwt-audience", cfg.JWTAudience, "required JWT audience")
	fs.StringVar(&cfg.OIDCIssuerURL, "oidc-issuer", cfg.OIDCIssuerURL, "OIDC issuer URL")
	fs.StringVar(&cfg.OIDCClientID, "oidc-client-id", cfg.OIDCClientID, "OIDC client id")
	fs.StringVar(&cfg.IntrospectURL, "introspect-url", cfg.IntrospectURL, "token introspection endpoint")
	fs.StringVar(&cfg.ResourceSecret, "oauth-resource-secret", cfg.ResourceSecret, "introspection resource secret")
	fs.DurationVar(&cfg.AuthTimeout, "auth-timeout", cfg.AuthTimeout, "credential verification timeout")

	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "translation engine: stub, deepl or ollama")
	fs.StringVar(&cfg.EngineURL, "engine-url", cfg.EngineURL, "translation engine base URL")
	fs.StringVar(&cfg.EngineAuthKey, "engine-auth-key", cfg.EngineAuthKey, "translation engine API key")
	fs.StringVar(&cfg.EngineModel, "engine-model", cfg.EngineModel, "translation model for ollama")
	fs.DurationVar(&cfg.StubDelay, "stub-delay", cfg.StubDelay, "simulated latency for the stub engine")
	fs.Func("languages", "comma-separated supported language codes", func(value string) error {
		cfg.Languages = splitList(value)
		if len(cfg.Languages) == 0 {
			return errors.New("at least one language is required")
		}
		return nil
	})
	fs.StringVar(&cfg.DefaultLanguage, "default-language", cfg.DefaultLanguage, "language for new sessions")
	fs.Func("target-variants", "comma-separated base=variant engine target overrides", func(value string) error {
		variants, err := parseVariants(value)
		if err != nil {
			return err
		}
		cfg.TargetVariants = variants
		return nil
	})
	fs.DurationVar(&cfg.TranslateTimeout, "translate-timeout", cfg.TranslateTimeout, "per-call translation timeout")

	fs.IntVar(&cfg.CacheMaxEntries, "cache-max-entries", cfg.CacheMaxEntries, "translation cache capacity")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "translation cache entry lifetime")
	fs.DurationVar(&cfg.CachePruneInterval, "cache-prune-interval", cfg.CachePruneInterval, "expired cache entry sweep interval")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "websocket write deadline")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	fs.BoolVar(&cfg.Probe, "probe", false, "probe the health listener and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseVariants(value string) (map[string]string, error) {
	variants := make(map[string]string)
	for _, pair := range splitList(value) {
		base, variant, ok := strings.Cut(pair, "=")
		base, variant = strings.TrimSpace(base), strings.TrimSpace(variant)
		if !ok || base == "" || variant == "" {
			return nil, fmt.Errorf("invalid target variant %q, want base=variant", pair)
		}
		variants[base] = variant
	}
	return variants, nil
}

func (cfg Config) serverConfig() server.Config {
	return server.Config{
		HTTPAddr:        cfg.HTTPAddr,
		HealthAddr:      cfg.HealthAddr,
		AdminSecret:     cfg.AdminSecret,
		MaxMessageRunes: cfg.MaxMessageRunes,
		Auth: authn.Config{
			Kind:            cfg.AuthKind,
			JWTSecret:       cfg.JWTSecret,
			JWTPublicKeyPEM: cfg.JWTPublicKeyPEM,
			Issuer:          cfg.JWTIssuer,
			Audience:        cfg.JWTAudience,
			OIDCIssuerURL:   cfg.OIDCIssuerURL,
			OIDCClientID:    cfg.OIDCClientID,
			IntrospectURL:   cfg.IntrospectURL,
			ResourceSecret:  cfg.ResourceSecret,
		},
		AuthTimeout: cfg.AuthTimeout,
		Engine: translator.EngineConfig{
			Kind:      cfg.Engine,
			URL:       cfg.EngineURL,
			AuthKey:   cfg.EngineAuthKey,
			Model:     cfg.EngineModel,
			StubDelay: cfg.StubDelay,
		},
		Translator: translator.Options{
			Supported:       cfg.Languages,
			DefaultLanguage: cfg.DefaultLanguage,
			TargetVariants:  cfg.TargetVariants,
			Timeout:         cfg.TranslateTimeout,
		},
		CacheMaxEntries:    cfg.CacheMaxEntries,
		CacheTTL:           cfg.CacheTTL,
		CachePruneInterval: cfg.CachePruneInterval,
		WriteTimeout:       cfg.WriteTimeout,
		ShutdownTimeout:    cfg.ShutdownTimeout,
	}
}

// Run builds the chat app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Probe {
		return probe(ctx, cfg)
	}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceChat, entrypoint.RunOptions{
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, func(ctx context.Context) error {
		if err := server.Run(ctx, cfg.serverConfig()); err != nil {
			return fmt.Errorf("serve chat: %w", err)
		}
		return nil
	})
}

func probe(ctx context.Context, cfg Config) error {
	addr := strings.TrimSpace(cfg.HealthAddr)
	if addr == "" {
		return errors.New("probe requires a health address")
	}
	if err := platformgrpc.Probe(ctx, addr, timeouts.GRPCDial, log.Printf); err != nil {
		return fmt.Errorf("probe chat health: %w", err)
	}
	return nil
}
