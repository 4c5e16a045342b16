package llm

import (
	"context"
	"fmt"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// minOllamaContext is the smallest context window requested from the local
// server; below this, long selections get silently clipped.
const minOllamaContext = 4096

// OllamaClient runs completions against a local Ollama server. The server
// address comes from OLLAMA_HOST, matching the ollama CLI.
type OllamaClient struct {
	Model string
}

// NewOllamaClient returns a client for the given model. The "ollama:" prefix
// is accepted and stripped.
func NewOllamaClient(model string) *OllamaClient {
	return &OllamaClient{Model: strings.TrimPrefix(model, "ollama:")}
}

// Invoke performs a single chat completion, collecting the streamed chunks
// into one completion.
func (c *OllamaClient) Invoke(ctx context.Context, systemMessage, userMessage string) (*Completion, error) {
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}

	// Size the context window to the prompt plus headroom.
	numCtx := estimateTokens(systemMessage) + estimateTokens(userMessage) + 1000
	if numCtx < minOllamaContext {
		numCtx = minOllamaContext
	}

	stream := false
	req := &ollama.ChatRequest{
		Model: c.Model,
		Messages: []ollama.Message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": defaultTemperature,
			"num_ctx":     numCtx,
		},
	}

	var content strings.Builder
	var doneReason string
	err = client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		if res.DoneReason != "" {
			doneReason = res.DoneReason
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	if strings.TrimSpace(content.String()) == "" {
		return nil, ErrEmptyCompletion
	}

	return &Completion{
		Content:   content.String(),
		Truncated: doneReason == "length",
		Model:     c.Model,
	}, nil
}
