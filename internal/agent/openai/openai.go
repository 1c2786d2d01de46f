package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/skybi/cost-estimator/internal/agent"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// ErrNoChoices is returned when the API responds without any choice
var ErrNoChoices = errors.New("no choices in chat completion response")

// Config represents the configuration of an OpenAI compatible chat completions model
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	// MaxRetries is the number of times a failed request is retried; zero disables retries
	MaxRetries int
}

// Model implements agent.Model using the chat completions API
type Model struct {
	completions sdk.ChatCompletionService
	model       string
}

var _ agent.Model = (*Model)(nil)

// New creates a new chat completions model, falling back to the default base URL, model and HTTP client
func New(config Config) *Model {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	client := sdk.NewClient(opts...)
	return &Model{
		completions: client.Chat.Completions,
		model:       model,
	}
}

// Converse sends the conversation to the chat completions endpoint
func (model *Model) Converse(ctx context.Context, request *agent.Request) (*agent.Response, error) {
	params, err := model.toParams(request)
	if err != nil {
		return nil, err
	}

	completion, err := model.completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("non-2xx status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := completion.Choices[0]
	message := agent.Message{
		Role:    agent.RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, call := range choice.Message.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, agent.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return &agent.Response{
		Message:      message,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (model *Model) toParams(request *agent.Request) (sdk.ChatCompletionNewParams, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model.model),
		Messages: toMessages(request),
	}

	for _, toolSpec := range request.Tools {
		tool := sdk.ChatCompletionToolParam{
			Function: sdk.FunctionDefinitionParam{
				Name: toolSpec.Name,
			},
		}
		if toolSpec.Description != "" {
			tool.Function.Description = sdk.String(toolSpec.Description)
		}
		if toolSpec.Parameters != nil {
			parameters, err := toParameters(toolSpec.Parameters)
			if err != nil {
				return params, fmt.Errorf("error converting parameters of tool %q: %w", toolSpec.Name, err)
			}
			tool.Function.Parameters = parameters
		}
		params.Tools = append(params.Tools, tool)
	}
	return params, nil
}

func toMessages(request *agent.Request) []sdk.ChatCompletionMessageParamUnion {
	var messages []sdk.ChatCompletionMessageParamUnion
	if request.SystemPrompt != "" {
		messages = append(messages, sdk.SystemMessage(request.SystemPrompt))
	}

	for _, message := range request.Messages {
		switch message.Role {
		case agent.RoleAssistant:
			assistant := &sdk.ChatCompletionAssistantMessageParam{}
			if message.Content != "" {
				assistant.Content.OfString = sdk.String(message.Content)
			}
			for _, call := range message.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			messages = append(messages, sdk.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case agent.RoleTool:
			messages = append(messages, sdk.ChatCompletionMessageParamUnion{
				OfTool: &sdk.ChatCompletionToolMessageParam{
					ToolCallID: message.ToolCallID,
					Content: sdk.ChatCompletionToolMessageParamContentUnion{
						OfString: sdk.String(message.Content),
					},
				},
			})
		default:
			messages = append(messages, sdk.UserMessage(message.Content))
		}
	}
	return messages
}

// toParameters converts a tool schema into the free-form parameters object the API expects
func toParameters(schema *agent.Schema) (sdk.FunctionParameters, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var parameters sdk.FunctionParameters
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return nil, err
	}
	return parameters, nil
}
