package runtime

import (
	"context"
	"fmt"

	"github.com/skybi/cost-estimator/internal/agent"
	"github.com/skybi/cost-estimator/internal/identity"
)

const (
	EstimatorToolName        = "cost_estimator_tool"
	EstimatorToolDescription = "Estimate cost of AWS from architecture description"
)

// AuthenticatedEstimator calls the remote cost estimator using tokens from a TokenProvider
type AuthenticatedEstimator struct {
	client *Client
	tokens identity.TokenProvider
}

// NewAuthenticatedEstimator creates a new estimator calling client with tokens obtained from tokens
func NewAuthenticatedEstimator(client *Client, tokens identity.TokenProvider) *AuthenticatedEstimator {
	return &AuthenticatedEstimator{
		client: client,
		tokens: tokens,
	}
}

// Estimate obtains an access token and posts the architecture description to the runtime
func (estimator *AuthenticatedEstimator) Estimate(ctx context.Context, architectureDescription string) (string, error) {
	token, err := estimator.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("obtaining access token: %w", err)
	}
	return estimator.client.Invoke(ctx, token, architectureDescription)
}

// EstimatorInput is the only input the estimator tool declares
type EstimatorInput struct {
	ArchitectureDescription string `json:"architecture_description" jsonschema:"description=Description of the AWS architecture to estimate,required"`
}

// NewEstimatorTool exposes estimator as an agent tool; the access token stays hidden from the model
func NewEstimatorTool(estimator *AuthenticatedEstimator) agent.Tool {
	return agent.NewTool(EstimatorToolName, EstimatorToolDescription,
		func(ctx context.Context, input EstimatorInput) (string, error) {
			return estimator.Estimate(ctx, input.ArchitectureDescription)
		})
}
