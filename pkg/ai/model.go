package ai

import (
	"context"
	"encoding/json"
)

// Message roles understood by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat turn sent to a model.
type Message struct {
	Role    string
	Content string

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall

	// ToolCallID and Name are set on tool messages carrying a result.
	ToolCallID string
	Name       string
}

// ToolCall is a model request to run a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Tool describes a callable function exposed to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
}

// Schema is the JSON-schema subset needed to describe tool parameters.
type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Items       *Schema           `json:"items,omitempty"`
}

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []Tool
	Temperature float32
}

// Completion is the model's reply: final text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel generates chat completions with optional tool calling.
// All providers (OpenAI, Gemini) implement this interface.
type ChatModel interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
