package api

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
)

const testIssuer = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_test"

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to encode claims: %v", err)
	}
	signed, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	raw, err := signed.CompactSerialize()
	if err != nil {
		t.Fatalf("failed to serialize token: %v", err)
	}
	return raw
}

// TestOIDCVerifier verifies signature, issuer, expiry and client_id checks.
func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := NewOIDCVerifier(oidc.NewVerifier(testIssuer, keySet, &oidc.Config{SkipClientIDCheck: true}))

	valid := map[string]any{
		"iss":       testIssuer,
		"sub":       "client-1",
		"client_id": "client-1",
		"scope":     "estimator/invoke",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	claims, err := verifier.Verify(context.Background(), signToken(t, key, valid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.ClientID != "client-1" || claims.Scope != "estimator/invoke" {
		t.Errorf("unexpected claims %+v", claims)
	}

	with := func(key string, value any) map[string]any {
		modified := map[string]any{}
		for k, v := range valid {
			modified[k] = v
		}
		if value == nil {
			delete(modified, key)
		} else {
			modified[key] = value
		}
		return modified
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong signing key", token: signToken(t, otherKey, valid)},
		{name: "wrong issuer", token: signToken(t, key, with("iss", "https://attacker.example"))},
		{name: "expired", token: signToken(t, key, with("exp", time.Now().Add(-time.Hour).Unix()))},
		{name: "no client id", token: signToken(t, key, with("client_id", nil))},
		{name: "garbage", token: "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := verifier.Verify(context.Background(), tt.token); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}
