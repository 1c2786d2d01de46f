package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/agent"
	"github.com/skybi/cost-estimator/internal/agent/openai"
	"github.com/skybi/cost-estimator/internal/config"
	"github.com/skybi/cost-estimator/internal/identity"
	"github.com/skybi/cost-estimator/internal/identity/storage/inmem"
	"github.com/skybi/cost-estimator/internal/runtime"
	"github.com/spf13/cobra"
)

const defaultArchitecture = "A simple web application with an Application Load Balancer, 2 EC2 t3.medium instances, and an RDS MySQL database in us-east-1."

const architectPrompt = "You are a professional solution architect. " +
	"You will receive architecture descriptions or requirements from customers. " +
	"Please provide estimate by using 'cost_estimator_tool'"

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})

	var architecture string
	command := &cobra.Command{
		Use:           "identity-test",
		Short:         "Invoke an agent that calls the cost estimator runtime using an M2M access token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), architecture)
		},
	}
	command.Flags().StringVar(&architecture, "architecture", defaultArchitecture, "Architecture description for cost estimation")

	if err := command.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("the identity test failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, architecture string) error {
	// Load the application and identity configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("loading the configuration: %w", err)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())
	identityCfg, err := config.LoadIdentity(cfg.IdentityConfig)
	if err != nil {
		return err
	}

	// Register the OAuth client with the identity broker
	storage, err := inmem.New()
	if err != nil {
		return err
	}
	broker := identity.NewBroker(storage, nil)
	err = broker.RegisterProvider(ctx, &identity.CredentialProvider{
		Name:         identityCfg.ProviderName,
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		TokenURL:     cfg.OAuthTokenURL,
		DiscoveryURL: cfg.OAuthDiscoveryURL,
	})
	if err != nil {
		return err
	}
	broker.StartCleanup(time.Minute)
	defer broker.StopCleanup()

	// Expose the authenticated runtime call as a tool; the agent never sees the access token
	tokens := broker.Bind(identity.TokenRequest{
		ProviderName:        identityCfg.ProviderName,
		Scopes:              []string{identityCfg.Scope},
		Flow:                identity.FlowM2M,
		ForceAuthentication: false,
	})
	client := runtime.NewClient(identityCfg.RuntimeURL, nil, log.Logger)
	estimatorTool := runtime.NewEstimatorTool(runtime.NewAuthenticatedEstimator(client, tokens))

	architect, err := agent.New(
		openai.New(openai.Config{
			BaseURL:    cfg.ModelBaseURL,
			APIKey:     cfg.ModelAPIKey,
			Model:      cfg.ModelName,
			MaxRetries: 2,
		}),
		agent.WithSystemPrompt(architectPrompt),
		agent.WithTools(estimatorTool),
	)
	if err != nil {
		return err
	}

	log.Info().Msg("invoking the agent that calls the runtime with identity...")
	result, err := architect.Invoke(ctx, architecture)
	if err != nil {
		return err
	}
	log.Info().Msg("successfully called the agent")
	fmt.Println(result.Text())
	return nil
}
