package authn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

// IntrospectVerifier asks an auth service whether a token is active.
type IntrospectVerifier struct {
	endpoint       string
	resourceSecret string
	httpClient     *http.Client
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// NewIntrospectVerifier builds a verifier posting to endpoint.
func NewIntrospectVerifier(endpoint, resourceSecret string, httpClient *http.Client) (*IntrospectVerifier, error) {
	endpoint = strings.TrimSpace(endpoint)
	resourceSecret = strings.TrimSpace(resourceSecret)
	if endpoint == "" || resourceSecret == "" {
		return nil, errors.New("introspection url and resource secret are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &IntrospectVerifier{endpoint: endpoint, resourceSecret: resourceSecret, httpClient: httpClient}, nil
}

// Verify implements Verifier.
func (v *IntrospectVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("X-Resource-Secret", v.resourceSecret)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("call auth introspection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, fmt.Errorf("auth introspection status %d", resp.StatusCode)
	}

	var payload introspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Identity{}, fmt.Errorf("decode introspection response: %w", err)
	}
	if !payload.Active {
		return domain.Identity{}, errors.New("inactive access token")
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return domain.Identity{}, errors.New("introspection returned empty user id")
	}
	return domain.Identity{
		Subject:     userID,
		DisplayName: strings.TrimSpace(payload.Name),
		Email:       strings.TrimSpace(payload.Email),
	}, nil
}
