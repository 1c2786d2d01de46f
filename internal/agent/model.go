package agent

import "context"

// Role represents the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message of a conversation.
// The system prompt is not part of the conversation; it is sent separately with every Request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCalls holds the tools an assistant message requests to be executed
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name link a tool message to the call it answers
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ToolCall represents a model's request to execute a tool with JSON-encoded arguments
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a tool to the model
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Request represents a single conversation turn sent to a model
type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSpec
}

// Response represents the model's answer to a Request
type Response struct {
	Message      Message
	FinishReason string
}

// Model represents a language model able to continue a conversation and request tool executions
type Model interface {
	// Converse sends the conversation to the model and returns its next message
	Converse(ctx context.Context, request *Request) (*Response, error)
}

// ModelFunc adapts a plain function to the Model interface
type ModelFunc func(ctx context.Context, request *Request) (*Response, error)

// Converse calls the underlying function
func (fn ModelFunc) Converse(ctx context.Context, request *Request) (*Response, error) {
	return fn(ctx, request)
}
