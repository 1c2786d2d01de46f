package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/api/schema"
)

const discoverySuffix = "/.well-known/openid-configuration"

// Claims represents the verified claims of an inbound access token
type Claims struct {
	Subject  string `json:"sub"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// TokenVerifier verifies inbound bearer tokens
type TokenVerifier interface {
	// Verify checks the signature and validity of rawToken and returns its claims
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OIDCVerifier verifies JWT access tokens against the keys published by an OIDC provider.
// Access tokens carry no audience, so the client is checked via the client_id claim instead.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier wraps an existing go-oidc verifier
func NewOIDCVerifier(verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier}
}

// DiscoverOIDCVerifier creates a new verifier using the OIDC discovery document behind discoveryURL
func DiscoverOIDCVerifier(ctx context.Context, discoveryURL string, httpClient *http.Client) (*OIDCVerifier, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, strings.TrimSuffix(discoveryURL, discoverySuffix))
	if err != nil {
		return nil, err
	}
	return NewOIDCVerifier(provider.Verifier(&oidc.Config{SkipClientIDCheck: true})), nil
}

// Verify checks the signature, issuer and expiry of rawToken
func (verifier *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	token, err := verifier.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	claims := new(Claims)
	if err := token.Claims(claims); err != nil {
		return nil, err
	}
	if claims.ClientID == "" {
		return nil, errors.New("access token carries no client_id claim")
	}
	return claims, nil
}

// MiddlewareVerifyToken makes sure that the requesting client has provided a valid access token issued to an
// allowed client
func (service *Service) MiddlewareVerifyToken(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		// Try to read the 'Authorization' header and verify it is of type 'Bearer'
		header := request.Header.Get("Authorization")
		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(rawToken) == "" {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}

		claims, err := service.Verifier.Verify(request.Context(), strings.TrimSpace(rawToken))
		if err != nil {
			log.Debug().Err(err).Msg("rejected an inbound access token")
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrInvalidToken)
			return
		}

		allowed := service.Config.AuthorizerAllowedClients
		if len(allowed) > 0 && !slices.Contains(allowed, claims.ClientID) {
			service.writer.WriteErrors(writer, http.StatusForbidden, schema.ErrClientNotAllowed(claims.ClientID))
			return
		}

		// Delegate to the next handler
		next(writer, request)
	}
}
