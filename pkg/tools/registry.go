package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"starbroker/pkg/ai"
	"starbroker/pkg/domain"
	"starbroker/pkg/store"
)

// Handler executes one tool call. Argument problems and empty results are
// values carried in the payload; an error return means the handler itself
// broke (store unreachable, encode failure) and is reported upstream.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Failure is the structured failure payload fed back to the model.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Outcome is the finished record of a single tool call.
type Outcome struct {
	Call    domain.ToolCall
	Payload any
	JSON    json.RawMessage
}

// Failed reports whether the call ended in a failure payload.
func (o Outcome) Failed() bool {
	return o.Call.Status == domain.ToolCallFailed
}

type definition struct {
	spec    ai.Tool
	handler Handler
}

// Registry holds the tool set bound to chat completions.
type Registry struct {
	defs  []definition
	index map[string]int
}

// NewRegistry builds the chat tool set backed by the given catalog store.
func NewRegistry(catalog store.Store) *Registry {
	r := &Registry{index: make(map[string]int)}
	r.register(searchSpec, newSearchHandler(catalog))
	r.register(navigateSpec, newNavigateHandler())
	return r
}

func (r *Registry) register(spec ai.Tool, handler Handler) {
	r.index[spec.Name] = len(r.defs)
	r.defs = append(r.defs, definition{spec: spec, handler: handler})
}

// Specs returns the tool descriptions to bind to a completion request.
func (r *Registry) Specs() []ai.Tool {
	specs := make([]ai.Tool, 0, len(r.defs))
	for _, def := range r.defs {
		specs = append(specs, def.spec)
	}
	return specs
}

// Execute dispatches a model tool call by name and returns the finished
// outcome. It never returns an error: unknown tools and handler errors are
// converted to failure payloads so the model can react to them.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall) Outcome {
	record := domain.ToolCall{
		ID:         call.ID,
		Name:       call.Name,
		Parameters: call.Arguments,
		Status:     domain.ToolCallExecuting,
	}
	idx, ok := r.index[call.Name]
	if !ok {
		return finish(record, Failure{Error: fmt.Sprintf("unknown tool %q", call.Name)})
	}
	payload, err := r.defs[idx].handler(ctx, call.Arguments)
	if err != nil {
		return finish(record, Failure{Error: err.Error()})
	}
	return finish(record, payload)
}

func finish(record domain.ToolCall, payload any) Outcome {
	raw, err := json.Marshal(payload)
	if err != nil {
		payload = Failure{Error: fmt.Sprintf("encode tool result: %v", err)}
		raw, _ = json.Marshal(payload)
	}
	record.Result = raw
	if failure, ok := payload.(Failure); ok {
		record.Status = domain.ToolCallFailed
		record.Error = failure.Error
	} else {
		record.Status = domain.ToolCallCompleted
	}
	return Outcome{Call: record, Payload: payload, JSON: raw}
}
