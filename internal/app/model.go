package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"starbroker/internal/config"
	"starbroker/pkg/ai"
)

// Environment variables holding provider credentials.
const (
	openaiKeyEnv = "OPENAI_API_KEY"
	geminiKeyEnv = "GEMINI_API_KEY"
)

// ModelFactory builds a chat model for one request. The API key is read
// from the environment on every call, so a missing key fails the request
// that needs it rather than process startup, and rotated keys take effect
// without a restart.
type ModelFactory func(ctx context.Context) (ai.ChatModel, error)

// NewModelFactory returns the factory for the configured provider.
func NewModelFactory(provider, openaiBaseURL string) (ModelFactory, error) {
	switch provider {
	case config.ProviderOpenAI:
		return func(_ context.Context) (ai.ChatModel, error) {
			key := strings.TrimSpace(os.Getenv(openaiKeyEnv))
			if key == "" {
				return nil, fmt.Errorf("%w: set %s", ErrNoCredential, openaiKeyEnv)
			}
			return ai.NewOpenAIModel(key, openaiBaseURL), nil
		}, nil
	case config.ProviderGemini:
		return func(ctx context.Context) (ai.ChatModel, error) {
			key := strings.TrimSpace(os.Getenv(geminiKeyEnv))
			if key == "" {
				return nil, fmt.Errorf("%w: set %s", ErrNoCredential, geminiKeyEnv)
			}
			return ai.NewGeminiModel(ctx, key)
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
