package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"development"`

	ListenAddress  string   `split_words:"true" default:":8080"`
	AllowedOrigins []string `split_words:"true" default:"http://*,https://*"`

	Region string `default:"us-east-1"`

	ModelBaseURL string `split_words:"true" default:"https://api.openai.com/v1"`
	ModelAPIKey  string `split_words:"true"`
	ModelName    string `split_words:"true" default:"gpt-4o-mini"`

	OAuthClientID     string `envconfig:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `envconfig:"OAUTH_CLIENT_SECRET"`
	OAuthDiscoveryURL string `envconfig:"OAUTH_DISCOVERY_URL"`
	OAuthTokenURL     string `envconfig:"OAUTH_TOKEN_URL"`

	AuthorizerDiscoveryURL   string   `split_words:"true"`
	AuthorizerAllowedClients []string `split_words:"true"`

	IdentityConfig string `split_words:"true" default:"inbound_authorizer.json"`
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.EqualFold(config.Environment, "production")
}

// LogLevel returns the minimum log level of the environment the application runs in
func (config *Config) LogLevel() zerolog.Level {
	if config.IsEnvProduction() {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}

// IsAuthorizerEnabled returns whether inbound requests to the runtime host have to carry a verified JWT
func (config *Config) IsAuthorizerEnabled() bool {
	return config.AuthorizerDiscoveryURL != ""
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("ce", config); err != nil {
		return nil, err
	}
	return config, nil
}
