package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel calls the OpenAI chat completions API, or any compatible
// endpoint (vLLM, LiteLLM, OpenRouter, self-hosted) when baseURL is set.
type OpenAIModel struct {
	client *openai.Client
}

// NewOpenAIModel builds a ChatModel backed by the OpenAI API.
// baseURL is optional and should include the /v1 prefix when set.
func NewOpenAIModel(apiKey, baseURL string) *OpenAIModel {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
		cfg.BaseURL = trimmed
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg)}
}

// Complete implements ChatModel. The response is streamed from the API and
// accumulated: content deltas are concatenated and tool-call fragments are
// stitched together by index before being returned as whole calls.
func (m *OpenAIModel) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Stream:      true,
		Messages:    toOpenAIMessages(req.Messages),
		Tools:       toOpenAITools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	var calls []openai.ToolCall
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read completion stream: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta
		content.WriteString(delta.Content)
		for _, fragment := range delta.ToolCalls {
			idx := len(calls) - 1
			if fragment.Index != nil {
				idx = *fragment.Index
			}
			if idx < 0 {
				continue
			}
			for idx >= len(calls) {
				calls = append(calls, openai.ToolCall{})
			}
			acc := &calls[idx]
			if fragment.ID != "" {
				acc.ID = fragment.ID
			}
			if fragment.Function.Name != "" {
				acc.Function.Name = fragment.Function.Name
			}
			acc.Function.Arguments += fragment.Function.Arguments
		}
	}

	completion := &Completion{Content: content.String()}
	for i, call := range calls {
		if call.Function.Name == "" {
			continue
		}
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		args := strings.TrimSpace(call.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return completion, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == RoleTool {
			converted.ToolCallID = msg.ToolCallID
			converted.Name = msg.Name
		}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}
