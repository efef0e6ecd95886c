package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

// OIDCVerifier verifies ID tokens issued by an OpenID Connect provider, such
// as Firebase Authentication (issuer https://securetoken.google.com/<project>).
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the provider at issuerURL and verifies tokens
// issued for clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	issuerURL = strings.TrimSpace(issuerURL)
	clientID = strings.TrimSpace(clientID)
	if issuerURL == "" || clientID == "" {
		return nil, errors.New("oidc issuer and client id are required")
	}
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewOIDCVerifierWithKeySet verifies tokens against a fixed key set.
func NewOIDCVerifierWithKeySet(issuer, clientID string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID})}
}

type oidcClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	token, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify id token: %w", err)
	}
	var claims oidcClaims
	if err := token.Claims(&claims); err != nil {
		return domain.Identity{}, fmt.Errorf("decode id token claims: %w", err)
	}
	return domain.Identity{
		Subject:     token.Subject,
		DisplayName: strings.TrimSpace(claims.Name),
		Email:       strings.TrimSpace(claims.Email),
	}, nil
}
