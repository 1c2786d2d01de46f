package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations is the number of model turns after which an agent gives up
const DefaultMaxIterations = 10

var (
	// ErrMaxIterations is returned when the model still requests tools after the maximum number of turns
	ErrMaxIterations = errors.New("agent exceeded the maximum number of iterations")

	errStopped = errors.New("stopped by consumer")
)

// Event represents a single event emitted by a streaming agent.
// Text is emitted as {"data": ...}; tool executions as {"tool_use": ...} and {"tool_result": ...}.
type Event map[string]any

// Result represents the outcome of an agent invocation
type Result struct {
	// Message is the model's final message
	Message Message

	// Messages is the whole conversation including the prompt
	Messages []Message
}

// Text returns the content of the final message
func (result *Result) Text() string {
	return result.Message.Content
}

// Agent drives a model through a conversation, executing the tools it requests until it answers
type Agent struct {
	model         Model
	systemPrompt  string
	catalog       *Catalog
	maxIterations int
}

type options struct {
	systemPrompt  string
	tools         []Tool
	maxIterations int
}

// Option configures an Agent
type Option func(opts *options)

// WithSystemPrompt sets the system prompt sent with every turn
func WithSystemPrompt(prompt string) Option {
	return func(opts *options) {
		opts.systemPrompt = prompt
	}
}

// WithTools adds tools the model may call
func WithTools(tools ...Tool) Option {
	return func(opts *options) {
		opts.tools = append(opts.tools, tools...)
	}
}

// WithMaxIterations sets the number of model turns after which the agent gives up
func WithMaxIterations(n int) Option {
	return func(opts *options) {
		opts.maxIterations = n
	}
}

// New creates a new agent using the given model
func New(model Model, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New("agent: model is required")
	}
	resolved := &options{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(resolved)
	}
	if resolved.maxIterations <= 0 {
		return nil, errors.New("agent: max iterations must be positive")
	}

	catalog, err := NewCatalog(resolved.tools...)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	return &Agent{
		model:         model,
		systemPrompt:  resolved.systemPrompt,
		catalog:       catalog,
		maxIterations: resolved.maxIterations,
	}, nil
}

// Invoke runs the agent on prompt until the model answers without requesting tools
func (agent *Agent) Invoke(ctx context.Context, prompt string) (*Result, error) {
	return agent.run(ctx, prompt, func(Event) bool { return true })
}

// Stream runs the agent on prompt and emits its events as they are produced.
// Breaking out of the loop stops the agent before its next model turn or tool execution.
// A failure is yielded as the last element.
func (agent *Agent) Stream(ctx context.Context, prompt string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		_, err := agent.run(ctx, prompt, func(event Event) bool {
			return yield(event, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

func (agent *Agent) run(ctx context.Context, prompt string, emit func(Event) bool) (*Result, error) {
	messages := []Message{{Role: RoleUser, Content: prompt}}

	for iteration := 0; iteration < agent.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := agent.model.Converse(ctx, &Request{
			SystemPrompt: agent.systemPrompt,
			Messages:     messages,
			Tools:        agent.catalog.Specs(),
		})
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		reply := response.Message
		reply.Role = RoleAssistant
		messages = append(messages, reply)

		if reply.Content != "" && !emit(Event{"data": reply.Content}) {
			return nil, errStopped
		}
		if len(reply.ToolCalls) == 0 {
			return &Result{Message: reply, Messages: messages}, nil
		}

		for _, call := range reply.ToolCalls {
			if !emit(Event{"tool_use": map[string]any{"id": call.ID, "name": call.Name, "input": call.Arguments}}) {
				return nil, errStopped
			}

			log.Debug().Str("tool", call.Name).Str("id", call.ID).Msg("executing tool")
			output, err := agent.catalog.Call(ctx, call)
			if err != nil {
				// The model may recover from naming a tool that does not exist; any other failure is fatal
				if !errors.Is(err, ErrUnknownTool) {
					return nil, fmt.Errorf("tool '%s': %w", call.Name, err)
				}
				log.Warn().Str("tool", call.Name).Msg("model requested an unknown tool")
				output = "Error: " + err.Error()
			}
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				Name:       call.Name,
			})

			if !emit(Event{"tool_result": map[string]any{"id": call.ID, "name": call.Name, "content": output}}) {
				return nil, errStopped
			}
		}
	}
	return nil, ErrMaxIterations
}
