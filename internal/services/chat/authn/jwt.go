package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

// JWTConfig configures locally verified JWTs. Exactly one of Secret (HS256)
// or PublicKeyPEM (EdDSA) must be set.
type JWTConfig struct {
	Secret       []byte
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// JWTVerifier verifies signed JWTs without a network round trip.
type JWTVerifier struct {
	parser  *jwt.Parser
	keyFunc jwt.Keyfunc
}

type identityClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTVerifier builds a JWTVerifier.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	hasSecret := len(cfg.Secret) > 0
	hasKey := len(strings.TrimSpace(string(cfg.PublicKeyPEM))) > 0
	if hasSecret == hasKey {
		return nil, errors.New("jwt verifier needs exactly one of secret or public key")
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	var key any
	if hasSecret {
		key = cfg.Secret
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	} else {
		publicKey, err := jwt.ParseEdPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		key = publicKey
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	}

	return &JWTVerifier{
		parser:  jwt.NewParser(opts...),
		keyFunc: func(*jwt.Token) (any, error) { return key, nil },
	}, nil
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	var claims identityClaims
	if _, err := v.parser.ParseWithClaims(credential, &claims, v.keyFunc); err != nil {
		return domain.Identity{}, fmt.Errorf("verify jwt: %w", err)
	}
	return domain.Identity{
		Subject:     claims.Subject,
		DisplayName: strings.TrimSpace(claims.Name),
		Email:       strings.TrimSpace(claims.Email),
	}, nil
}
