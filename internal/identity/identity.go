package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// AuthFlow represents the OAuth flow used to obtain an access token
type AuthFlow string

const (
	// FlowM2M is the machine-to-machine client credentials flow requiring no user consent
	FlowM2M AuthFlow = "M2M"

	// FlowUserFederation is the interactive three-legged flow acting on behalf of a user
	FlowUserFederation AuthFlow = "USER_FEDERATION"
)

var (
	// ErrProviderNotFound is returned when a token is requested from a credential provider that was never registered
	ErrProviderNotFound = errors.New("credential provider not found")

	// ErrFlowNotSupported is returned when a token is requested using an auth flow the broker cannot perform
	ErrFlowNotSupported = errors.New("auth flow not supported")
)

// TokenProvider provides access tokens to components that must not know how they are obtained
type TokenProvider interface {
	// AccessToken returns a valid bearer access token
	AccessToken(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a plain function to the TokenProvider interface
type TokenProviderFunc func(ctx context.Context) (string, error)

// AccessToken calls the underlying function
func (fn TokenProviderFunc) AccessToken(ctx context.Context) (string, error) {
	return fn(ctx)
}

// TokenRequest describes which token a caller needs
type TokenRequest struct {
	ProviderName string
	Scopes       []string
	Flow         AuthFlow

	// ForceAuthentication bypasses the token cache
	ForceAuthentication bool
}

// cacheKey identifies tokens issued by the same provider for the same set of scopes
func (request TokenRequest) cacheKey() string {
	scopes := append([]string(nil), request.Scopes...)
	sort.Strings(scopes)
	return request.ProviderName + "|" + strings.Join(scopes, " ")
}

// CredentialProvider represents an OAuth client registered with the broker under a unique name
type CredentialProvider struct {
	Name         string
	ClientID     string
	ClientSecret string

	// TokenURL is the token endpoint of the authorization server.
	// If it is empty, it is resolved from DiscoveryURL on registration.
	TokenURL     string
	DiscoveryURL string
}

// CachedToken represents an access token kept by the broker until it expires
type CachedToken struct {
	Key         string
	AccessToken string
	TokenType   string
	Expires     int64
}

// Storage defines the broker storage API
type Storage interface {
	// GetProvider retrieves a credential provider by its name; it returns nil if none exists
	GetProvider(ctx context.Context, name string) (*CredentialProvider, error)

	// PutProvider creates or replaces a credential provider
	PutProvider(ctx context.Context, provider *CredentialProvider) error

	// GetToken retrieves a cached token by its key; it returns nil if none exists
	GetToken(ctx context.Context, key string) (*CachedToken, error)

	// PutToken creates or replaces a cached token
	PutToken(ctx context.Context, token *CachedToken) error

	// DeleteExpired deletes all cached tokens expiring at or before now (unix seconds)
	DeleteExpired(ctx context.Context, now int64) (int, error)
}
