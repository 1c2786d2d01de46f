package estimator

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/agent"
)

// Event represents a single streamed estimation event.
// Text deltas are {"data": "..."}, failures {"error": true, "data": "..."}.
type Event = agent.Event

// ErrorEvent creates the event reporting a failed estimation
func ErrorEvent(err error) Event {
	return Event{"error": true, "data": "Streaming cost estimation failed: " + err.Error()}
}

// Config represents the configuration of an estimation agent
type Config struct {
	// Region is the AWS region assumed when the architecture names none
	Region string

	// Model drives the estimation
	Model agent.Model

	// Tools are offered to the model in addition to its prompts, e.g. pricing lookups
	Tools []agent.Tool

	// MaxIterations limits the number of model turns; zero means the agent default
	MaxIterations int
}

// Agent estimates the cost of architecture descriptions
type Agent struct {
	region string
	agent  *agent.Agent
}

// New creates a new estimation agent
func New(config Config) (*Agent, error) {
	region := config.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []agent.Option{
		agent.WithSystemPrompt(systemPrompt(region)),
		agent.WithTools(config.Tools...),
	}
	if config.MaxIterations > 0 {
		opts = append(opts, agent.WithMaxIterations(config.MaxIterations))
	}
	inner, err := agent.New(config.Model, opts...)
	if err != nil {
		return nil, fmt.Errorf("estimator: %w", err)
	}
	return &Agent{region: region, agent: inner}, nil
}

// Region returns the region the agent assumes
func (estimator *Agent) Region() string {
	return estimator.region
}

// Estimate estimates the cost of the given architecture and returns the final answer
func (estimator *Agent) Estimate(ctx context.Context, architectureDescription string) (string, error) {
	log.Info().Str("region", estimator.region).Str("architecture", architectureDescription).Msg("starting cost estimation")

	result, err := estimator.agent.Invoke(ctx, EstimationPrompt(architectureDescription))
	if err != nil {
		return "", fmt.Errorf("cost estimation failed: %w", err)
	}
	log.Info().Msg("cost estimation completed")

	if strings.TrimSpace(result.Text()) == "" {
		return NoResult, nil
	}
	return result.Text(), nil
}

// EstimateStream estimates the cost of the given architecture and emits its events as they are produced.
// Cumulative text chunks are reduced to the text not emitted yet; other events pass through.
func (estimator *Agent) EstimateStream(ctx context.Context, architectureDescription string) iter.Seq2[Event, error] {
	return Deltas(estimator.agent.Stream(ctx, EstimationPrompt(architectureDescription)))
}

// Deltas normalizes the text events of source.
// A chunk starting with the text seen so far is reduced to its new suffix and dropped if that is empty;
// any other chunk is emitted unchanged and becomes the new baseline.
func Deltas(source iter.Seq2[Event, error]) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		accumulated := ""
		for event, err := range source {
			if err != nil {
				yield(nil, err)
				return
			}

			data, ok := event["data"]
			if !ok {
				if !yield(event, nil) {
					return
				}
				continue
			}

			chunk := fmt.Sprint(data)
			if strings.HasPrefix(chunk, accumulated) {
				delta := chunk[len(accumulated):]
				if delta == "" {
					continue
				}
				accumulated = chunk
				if !yield(Event{"data": delta}, nil) {
					return
				}
				continue
			}

			accumulated = chunk
			if !yield(Event{"data": chunk}, nil) {
				return
			}
		}
	}
}
