package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Default models per provider, used when the config leaves the model empty.
const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "qwen2.5-coder:7b"
)

// defaultTemperature keeps edits deterministic-ish; code generation degrades
// quickly at higher sampling temperatures.
const defaultTemperature = 0.2

// ErrEmptyCompletion reports a transport-level success whose payload carried
// no usable text. Callers treat it as a retryable invocation failure, distinct
// from provider or network errors.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completion is the result of a single model round trip.
type Completion struct {
	Content   string
	Truncated bool
	Model     string
}

// Invoker performs one model invocation. Implementations must honor ctx
// cancellation and deadlines.
type Invoker interface {
	Invoke(ctx context.Context, systemMessage, userMessage string) (*Completion, error)
}

// SelectProvider resolves which provider to use: explicit flag first, then the
// PATCHPILOT_PROVIDER environment variable, then the configured value. With
// nothing set, an available OpenAI key selects openai, otherwise ollama.
func SelectProvider(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("PATCHPILOT_PROVIDER"); env != "" {
		return env
	}
	if configValue != "" {
		return configValue
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// NewInvoker builds the client for the resolved provider. An empty model
// picks the provider default.
func NewInvoker(provider, model, openAIBaseURL string) (Invoker, error) {
	switch provider {
	case ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("provider %q requires OPENAI_API_KEY to be set", provider)
		}
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIClient(openAIBaseURL, model, apiKey), nil
	case ProviderOllama:
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaClient(model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// estimateTokens is a rough chars/4 heuristic, good enough for sizing the
// local context window.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
