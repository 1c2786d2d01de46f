package api

import (
	"context"
	"iter"

	"github.com/skybi/cost-estimator/internal/estimator"
)

// AgentFactory creates the estimation agent serving a single invocation
type AgentFactory func() (*estimator.Agent, error)

// NewBatchEntrypoint creates an entrypoint passing the prompt to a fresh estimation agent and returning its answer unchanged
func NewBatchEntrypoint(newAgent AgentFactory) BatchEntrypoint {
	return func(ctx context.Context, payload *Payload) (any, error) {
		agent, err := newAgent()
		if err != nil {
			return nil, err
		}
		return agent.Estimate(ctx, *payload.Prompt)
	}
}

// NewStreamEntrypoint creates an entrypoint passing the prompt to a fresh estimation agent and forwarding its events in order
func NewStreamEntrypoint(newAgent AgentFactory) StreamEntrypoint {
	return func(ctx context.Context, payload *Payload) iter.Seq2[estimator.Event, error] {
		agent, err := newAgent()
		if err != nil {
			return func(yield func(estimator.Event, error) bool) {
				yield(nil, err)
			}
		}
		return agent.EstimateStream(ctx, *payload.Prompt)
	}
}
