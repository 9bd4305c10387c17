package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiModel calls the Gemini API through the official SDK.
type GeminiModel struct {
	client *genai.Client
}

// NewGeminiModel builds a ChatModel backed by the Gemini API.
// Callers own the client lifetime and should Close when done.
func NewGeminiModel(ctx context.Context, apiKey string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(apiKey)))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client}, nil
}

// Close releases the underlying API connection.
func (m *GeminiModel) Close() error {
	return m.client.Close()
}

// Complete implements ChatModel. The trailing user or tool messages are sent
// through a chat session seeded with the earlier turns as history. Gemini
// does not assign tool-call IDs, so synthetic ones are attached to keep the
// call/result pairing stable across providers.
func (m *GeminiModel) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	model := m.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if system := collectSystemPrompt(req.Messages); system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if tools := toGeminiTools(req.Tools); tools != nil {
		model.Tools = tools
	}

	history, send, err := splitGeminiTurns(req.Messages)
	if err != nil {
		return nil, err
	}
	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, send...)
	if err != nil {
		return nil, fmt.Errorf("gemini send message: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Completion{}, nil
	}

	completion := &Completion{}
	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch typed := part.(type) {
		case genai.Text:
			content.WriteString(string(typed))
		case genai.FunctionCall:
			args, err := json.Marshal(typed.Args)
			if err != nil {
				return nil, fmt.Errorf("encode function call args: %w", err)
			}
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d", len(completion.ToolCalls)),
				Name:      typed.Name,
				Arguments: args,
			})
		}
	}
	completion.Content = content.String()
	return completion, nil
}

func collectSystemPrompt(messages []Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == RoleSystem && strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// splitGeminiTurns converts messages into session history plus the parts for
// the final SendMessage. The trailing run of tool results is sent together so
// each function call in a batch gets its response in the same turn.
func splitGeminiTurns(messages []Message) ([]*genai.Content, []genai.Part, error) {
	turns := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		content, err := toGeminiContent(msg)
		if err != nil {
			return nil, nil, err
		}
		turns = append(turns, content)
	}
	if len(turns) == 0 {
		return nil, nil, fmt.Errorf("gemini: no messages to send")
	}

	cut := len(turns) - 1
	if turns[cut].Role == "function" {
		for cut > 0 && turns[cut-1].Role == "function" {
			cut--
		}
	}
	var send []genai.Part
	for _, turn := range turns[cut:] {
		send = append(send, turn.Parts...)
	}
	return turns[:cut], send, nil
}

func toGeminiContent(msg Message) (*genai.Content, error) {
	switch msg.Role {
	case RoleUser:
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}}, nil
	case RoleAssistant:
		content := &genai.Content{Role: "model"}
		if msg.Content != "" {
			content.Parts = append(content.Parts, genai.Text(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			args := map[string]any{}
			if len(call.Arguments) > 0 {
				if err := json.Unmarshal(call.Arguments, &args); err != nil {
					return nil, fmt.Errorf("decode tool call args: %w", err)
				}
			}
			content.Parts = append(content.Parts, genai.FunctionCall{Name: call.Name, Args: args})
		}
		if len(content.Parts) == 0 {
			content.Parts = append(content.Parts, genai.Text(""))
		}
		return content, nil
	case RoleTool:
		response := map[string]any{}
		if msg.Content != "" {
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				// Plain-text results still need a structured envelope.
				response = map[string]any{"result": msg.Content}
			}
		}
		return &genai.Content{
			Role:  "function",
			Parts: []genai.Part{genai.FunctionResponse{Name: msg.Name, Response: response}},
		}, nil
	default:
		return nil, fmt.Errorf("gemini: unsupported message role %q", msg.Role)
	}
}

func toGeminiTools(tools []Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGeminiSchema(tool.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func toGeminiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	default:
		out.Type = genai.TypeUnspecified
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	out.Required = s.Required
	out.Enum = s.Enum
	if s.Items != nil {
		out.Items = toGeminiSchema(*s.Items)
	}
	return out
}
