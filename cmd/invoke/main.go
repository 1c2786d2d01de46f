package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/agent/openai"
	"github.com/skybi/cost-estimator/internal/api"
	"github.com/skybi/cost-estimator/internal/config"
	"github.com/skybi/cost-estimator/internal/estimator"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	model := openai.New(openai.Config{
		BaseURL:    cfg.ModelBaseURL,
		APIKey:     cfg.ModelAPIKey,
		Model:      cfg.ModelName,
		MaxRetries: 2,
	})
	newAgent := func() (*estimator.Agent, error) {
		return estimator.New(estimator.Config{
			Region: cfg.Region,
			Model:  model,
		})
	}

	// Every invocation gets its own estimation agent
	host := &api.Service{
		Config: cfg,
		Batch:  api.NewBatchEntrypoint(newAgent),
	}
	if cfg.IsAuthorizerEnabled() {
		log.Info().Str("discovery_url", cfg.AuthorizerDiscoveryURL).Msg("enabling the inbound authorizer...")
		verifier, err := api.DiscoverOIDCVerifier(context.Background(), cfg.AuthorizerDiscoveryURL, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("could not discover the inbound authorizer")
		}
		host.Verifier = verifier
	}

	// Start up the runtime host
	log.Info().Str("address", cfg.ListenAddress).Msg("starting up the batch runtime host...")
	hostErrs := make(chan error, 1)
	host.Startup(hostErrs)
	go func() {
		err := <-hostErrs
		log.Fatal().Err(err).Msg("the runtime host raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the runtime host...")
		host.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
