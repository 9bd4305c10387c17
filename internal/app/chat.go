package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"starbroker/internal/config"
	"starbroker/internal/util"
	"starbroker/pkg/ai"
	"starbroker/pkg/domain"
	"starbroker/pkg/store"
	"starbroker/pkg/tools"
)

// App orchestrates chat turns: it binds the tool set to the configured
// model, runs at most one tool round-trip, and shapes the final reply.
type App struct {
	cfg      config.FileConfig
	registry *tools.Registry
	model    ModelFactory
}

// New wires the chat core against the star catalog.
func New(cfg config.FileConfig, catalog store.Store) (*App, error) {
	factory, err := NewModelFactory(cfg.Provider, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:      cfg,
		registry: tools.NewRegistry(catalog),
		model:    factory,
	}, nil
}

// TurnRequest is one user turn plus the conversation so far.
type TurnRequest struct {
	Message      string
	History      []domain.Message
	SystemPrompt string
}

// TurnResult is the finished turn. Navigation is set only when a navigate
// tool call succeeded; the client reads it from a response header instead
// of scraping the reply text.
type TurnResult struct {
	Reply      string
	Navigation *domain.NavigationResult
	ToolCalls  []domain.ToolCall
}

// RunTurn executes one chat turn. Tool calls requested by the model run
// sequentially through the registry, their results are appended as tool
// messages, and the model is re-invoked exactly once. A second response
// that still asks for tools is logged and ignored.
func (a *App) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	model, err := a.model(ctx)
	if err != nil {
		return nil, err
	}
	if closer, ok := model.(io.Closer); ok {
		defer closer.Close()
	}

	messages := a.buildMessages(req.History, req.SystemPrompt, message)
	logger := util.LoggerFromContext(ctx)

	first, err := model.Complete(ctx, &ai.CompletionRequest{
		Model:       a.cfg.ChatModel,
		Messages:    messages,
		Tools:       a.registry.Specs(),
		Temperature: float32(a.cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(first.ToolCalls) == 0 {
		return &TurnResult{Reply: first.Content}, nil
	}

	outcomes := make([]tools.Outcome, 0, len(first.ToolCalls))
	var navigation *domain.NavigationResult
	for _, call := range first.ToolCalls {
		outcome := a.registry.Execute(ctx, call)
		if outcome.Failed() {
			logger.Warn("tool_call_failed", "tool", call.Name, "err", outcome.Call.Error)
		} else {
			logger.Info("tool_call_completed", "tool", call.Name)
		}
		if nav, ok := outcome.Payload.(domain.NavigationResult); ok && nav.Success {
			navigation = &nav
		}
		outcomes = append(outcomes, outcome)
	}

	messages = append(messages, ai.Message{
		Role:      ai.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for _, outcome := range outcomes {
		messages = append(messages, ai.Message{
			Role:       ai.RoleTool,
			Content:    string(outcome.JSON),
			ToolCallID: outcome.Call.ID,
			Name:       outcome.Call.Name,
		})
	}

	second, err := model.Complete(ctx, &ai.CompletionRequest{
		Model:       a.cfg.ChatModel,
		Messages:    messages,
		Tools:       a.registry.Specs(),
		Temperature: float32(a.cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("post-tool completion: %w", err)
	}
	if len(second.ToolCalls) > 0 {
		// Hard cap: one tool round-trip per turn.
		logger.Warn("tool_calls_ignored", "count", len(second.ToolCalls))
	}

	reply := strings.TrimSpace(second.Content)
	if reply == "" {
		reply = fallbackReply(outcomes)
	}
	return &TurnResult{
		Reply:      reply,
		Navigation: navigation,
		ToolCalls:  collectRecords(outcomes),
	}, nil
}

// buildMessages assembles the bounded message list: system prompt, prior
// user/assistant turns, current message. Tool-role and empty history
// entries are dropped; they belong to earlier turns, not to the model.
func (a *App) buildMessages(history []domain.Message, systemOverride, message string) []ai.Message {
	system := strings.TrimSpace(systemOverride)
	if system == "" {
		system = a.cfg.SystemPrompt
	}
	messages := make([]ai.Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: system})
	}
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(messages, ai.Message{Role: ai.RoleUser, Content: message})
}

// fallbackReply derives a reply from the tool outcomes when the post-tool
// completion came back empty. It reports what actually happened instead of
// claiming a generic success.
func fallbackReply(outcomes []tools.Outcome) string {
	var parts []string
	for _, outcome := range outcomes {
		switch payload := outcome.Payload.(type) {
		case domain.NavigationResult:
			parts = append(parts, payload.Message)
		case tools.SearchResult:
			parts = append(parts, payload.Message)
		case tools.Failure:
			parts = append(parts, fmt.Sprintf("The %s tool failed: %s", outcome.Call.Name, payload.Error))
		}
	}
	if len(parts) == 0 {
		return "I could not complete that request."
	}
	return strings.Join(parts, " ")
}

func collectRecords(outcomes []tools.Outcome) []domain.ToolCall {
	records := make([]domain.ToolCall, 0, len(outcomes))
	for _, outcome := range outcomes {
		records = append(records, outcome.Call)
	}
	return records
}
