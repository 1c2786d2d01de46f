package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/task"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const discoverySuffix = "/.well-known/openid-configuration"

// expiryMargin is subtracted from a cached token's expiry so that callers never receive a token about to expire
const expiryMargin = 30 * time.Second

// Broker issues access tokens for registered credential providers and caches them until they expire
type Broker struct {
	storage    Storage
	httpClient *http.Client
	now        func() time.Time

	cleanupTask *task.RepeatingTask
}

// NewBroker creates a new broker using the given storage.
// If httpClient is nil, http.DefaultClient is used to talk to authorization servers.
func NewBroker(storage Storage, httpClient *http.Client) *Broker {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Broker{
		storage:    storage,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// RegisterProvider validates and stores a credential provider.
// If the provider has no token URL, it is resolved using the OIDC discovery document behind DiscoveryURL.
func (broker *Broker) RegisterProvider(ctx context.Context, provider *CredentialProvider) error {
	if provider.Name == "" {
		return errors.New("credential provider: name is required")
	}
	if provider.ClientID == "" || provider.ClientSecret == "" {
		return fmt.Errorf("credential provider '%s': client ID and secret are required", provider.Name)
	}

	registered := *provider
	if registered.TokenURL == "" {
		if registered.DiscoveryURL == "" {
			return fmt.Errorf("credential provider '%s': either a token URL or a discovery URL is required", provider.Name)
		}
		tokenURL, err := broker.discoverTokenURL(ctx, registered.DiscoveryURL)
		if err != nil {
			return fmt.Errorf("credential provider '%s': %w", provider.Name, err)
		}
		registered.TokenURL = tokenURL
	}

	if err := broker.storage.PutProvider(ctx, &registered); err != nil {
		return err
	}
	log.Info().Str("provider", registered.Name).Str("token_url", registered.TokenURL).Msg("registered credential provider")
	return nil
}

func (broker *Broker) discoverTokenURL(ctx context.Context, discoveryURL string) (string, error) {
	issuer := strings.TrimSuffix(discoveryURL, discoverySuffix)
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, broker.httpClient), issuer)
	if err != nil {
		return "", fmt.Errorf("discovering OIDC provider: %w", err)
	}
	tokenURL := provider.Endpoint().TokenURL
	if tokenURL == "" {
		return "", errors.New("discovery document does not announce a token endpoint")
	}
	return tokenURL, nil
}

// AccessToken returns an access token satisfying the given request.
// Cached tokens are reused unless ForceAuthentication is set.
func (broker *Broker) AccessToken(ctx context.Context, request TokenRequest) (*oauth2.Token, error) {
	if request.Flow != FlowM2M {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotSupported, request.Flow)
	}

	provider, err := broker.storage.GetProvider(ctx, request.ProviderName)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, request.ProviderName)
	}

	key := request.cacheKey()
	if !request.ForceAuthentication {
		cached, err := broker.storage.GetToken(ctx, key)
		if err != nil {
			return nil, err
		}
		if cached != nil && broker.now().Add(expiryMargin).Before(time.Unix(cached.Expires, 0)) {
			log.Debug().Str("provider", provider.Name).Msg("reusing cached access token")
			return &oauth2.Token{
				AccessToken: cached.AccessToken,
				TokenType:   cached.TokenType,
				Expiry:      time.Unix(cached.Expires, 0),
			}, nil
		}
	}

	clientConfig := &clientcredentials.Config{
		ClientID:     provider.ClientID,
		ClientSecret: provider.ClientSecret,
		TokenURL:     provider.TokenURL,
		Scopes:       request.Scopes,
		AuthStyle:    oauth2.AuthStyleAutoDetect,
	}
	token, err := clientConfig.Token(context.WithValue(ctx, oauth2.HTTPClient, broker.httpClient))
	if err != nil {
		return nil, fmt.Errorf("requesting access token from '%s': %w", provider.Name, err)
	}
	log.Info().Str("provider", provider.Name).Strs("scopes", request.Scopes).Time("expiry", token.Expiry).Msg("obtained access token")

	// Tokens without a known lifetime are never cached
	if !token.Expiry.IsZero() {
		err := broker.storage.PutToken(ctx, &CachedToken{
			Key:         key,
			AccessToken: token.AccessToken,
			TokenType:   token.Type(),
			Expires:     token.Expiry.Unix(),
		})
		if err != nil {
			return nil, err
		}
	}
	return token, nil
}

// Bind returns a token provider that always requests tokens using the given request
func (broker *Broker) Bind(request TokenRequest) TokenProvider {
	return TokenProviderFunc(func(ctx context.Context) (string, error) {
		token, err := broker.AccessToken(ctx, request)
		if err != nil {
			return "", err
		}
		return token.AccessToken, nil
	})
}

// PurgeExpired deletes all expired tokens from the cache
func (broker *Broker) PurgeExpired(ctx context.Context) (int, error) {
	return broker.storage.DeleteExpired(ctx, broker.now().Unix())
}

// StartCleanup schedules the task that purges expired tokens in a specific interval
func (broker *Broker) StartCleanup(interval time.Duration) {
	if broker.cleanupTask != nil {
		return
	}
	broker.cleanupTask = task.NewRepeating(func() {
		n, err := broker.PurgeExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not purge expired access tokens")
		} else if n > 0 {
			log.Debug().Int("amount", n).Msg("purged expired access tokens")
		}
	}, interval)
	broker.cleanupTask.Start()
}

// StopCleanup stops the cleanup task
func (broker *Broker) StopCleanup() {
	if broker.cleanupTask == nil {
		return
	}
	broker.cleanupTask.Stop(false)
	broker.cleanupTask = nil
}
