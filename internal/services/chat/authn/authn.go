// Package authn binds bearer credentials to identities at connection time.
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/louisbranch/babel.chat/internal/platform/errors"
	"github.com/louisbranch/babel.chat/internal/platform/timeouts"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

// Verifier checks a raw credential with an identity provider.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, credential string) (domain.Identity, error)

// Verify implements Verifier.
func (fn VerifierFunc) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	return fn(ctx, credential)
}

// Authenticator validates credentials once per connection attempt.
type Authenticator struct {
	verifier Verifier
	timeout  time.Duration
}

// New builds an Authenticator. A non-positive timeout uses timeouts.AuthVerify.
func New(verifier Verifier, timeout time.Duration) *Authenticator {
	if timeout <= 0 {
		timeout = timeouts.AuthVerify
	}
	return &Authenticator{verifier: verifier, timeout: timeout}
}

// Authenticate resolves credential to an identity. Every failure is reported
// as AUTHENTICATION_FAILED.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (domain.Identity, error) {
	token := stripBearer(credential)
	if token == "" {
		return domain.Identity{}, authFailed(errors.New("credential is required"))
	}
	if a == nil || a.verifier == nil {
		return domain.Identity{}, authFailed(errors.New("auth is not configured"))
	}

	verifyCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	identity, err := a.verifier.Verify(verifyCtx, token)
	if err != nil {
		return domain.Identity{}, authFailed(err)
	}
	identity.Subject = strings.TrimSpace(identity.Subject)
	if identity.Subject == "" {
		return domain.Identity{}, authFailed(errors.New("verified identity has empty subject"))
	}
	return identity, nil
}

// CredentialFromRequest reads the bearer credential from the Authorization
// header, falling back to the access_token query parameter.
func CredentialFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		return header
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func stripBearer(credential string) string {
	credential = strings.TrimSpace(credential)
	if len(credential) >= len("bearer ") && strings.EqualFold(credential[:len("bearer ")], "bearer ") {
		credential = credential[len("bearer "):]
	}
	return strings.TrimSpace(credential)
}

func authFailed(cause error) error {
	return apperrors.Wrap(apperrors.CodeAuthenticationFailed, "authenticate", cause)
}

// Verifier kinds accepted by NewVerifier.
const (
	KindJWT        = "jwt"
	KindOIDC       = "oidc"
	KindIntrospect = "introspect"
)

// Config selects and configures a verifier.
type Config struct {
	Kind string

	JWTSecret       string
	JWTPublicKeyPEM string
	Issuer          string
	Audience        string

	OIDCIssuerURL string
	OIDCClientID  string

	IntrospectURL  string
	ResourceSecret string
}

// NewVerifier builds the verifier named by cfg.Kind. OIDC discovery runs
// against ctx.
func NewVerifier(ctx context.Context, cfg Config) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindJWT:
		return NewJWTVerifier(JWTConfig{
			Secret:       []byte(cfg.JWTSecret),
			PublicKeyPEM: []byte(cfg.JWTPublicKeyPEM),
			Issuer:       cfg.Issuer,
			Audience:     cfg.Audience,
		})
	case KindOIDC:
		return NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
	case KindIntrospect:
		return NewIntrospectVerifier(cfg.IntrospectURL, cfg.ResourceSecret, nil)
	case "":
		return nil, fmt.Errorf("auth verifier kind is required")
	default:
		return nil, fmt.Errorf("unknown auth verifier %q", cfg.Kind)
	}
}
