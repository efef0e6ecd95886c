package authn

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims() identityClaims {
	now := time.Now()
	return identityClaims{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "babel-auth",
			Audience:  jwt.ClaimStrings{"babel-chat"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestJWTVerifierHS256(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Secret: []byte("s3cret"), Issuer: "babel-auth", Audience: "babel-chat"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	identity, err := v.Verify(context.Background(), signHS256(t, "s3cret", validClaims()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Subject != "user-1" || identity.DisplayName != "Ada Lovelace" || identity.Email != "ada@example.com" {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	v, err := NewJWTVerifier(JWTConfig{Secret: []byte("s3cret"), Issuer: "babel-auth", Audience: "babel-chat"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other-app"}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := map[string]string{
		"wrong secret":   signHS256(t, "other", validClaims()),
		"expired":        signHS256(t, "s3cret", expired),
		"no expiry":      signHS256(t, "s3cret", noExpiry),
		"wrong issuer":   signHS256(t, "s3cret", wrongIssuer),
		"wrong audience": signHS256(t, "s3cret", wrongAudience),
		"alg none":       unsigned,
		"garbage":        "not-a-jwt",
	}
	for name, token := range tests {
		if _, err := v.Verify(context.Background(), token); err == nil {
			t.Fatalf("%s: expected verification failure", name)
		}
	}
}

func TestJWTVerifierEdDSA(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewJWTVerifier(JWTConfig{PublicKeyPEM: pemBytes})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, validClaims()).SignedString(privateKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	identity, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Subject != "user-1" {
		t.Fatalf("subject = %q", identity.Subject)
	}

	if _, err := v.Verify(context.Background(), signHS256(t, "s3cret", validClaims())); err == nil {
		t.Fatal("expected HS256 token to be rejected by EdDSA verifier")
	}
}

func TestNewJWTVerifierNeedsExactlyOneKey(t *testing.T) {
	if _, err := NewJWTVerifier(JWTConfig{}); err == nil {
		t.Fatal("expected error without keys")
	}
	if _, err := NewJWTVerifier(JWTConfig{Secret: []byte("x"), PublicKeyPEM: []byte("y")}); err == nil {
		t.Fatal("expected error with both keys")
	}
	if _, err := NewJWTVerifier(JWTConfig{PublicKeyPEM: []byte("not pem")}); err == nil {
		t.Fatal("expected error for malformed pem")
	}
}
