package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patchpilot/patchpilot/pkg/prompts"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// errorBodyLimit bounds how much of a failing response body ends up in the
// returned error.
const errorBodyLimit = 2048

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	BaseURL string
	Model   string
	APIKey  string

	client *http.Client
}

// NewOpenAIClient returns a client for the given endpoint. An empty baseURL
// selects the official OpenAI API.
func NewOpenAIClient(baseURL, model, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		client:  &http.Client{},
	}
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []prompts.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	Stream      bool              `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Invoke performs a single non-streaming chat completion.
func (c *OpenAIClient) Invoke(ctx context.Context, systemMessage, userMessage string) (*Completion, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: c.Model,
		Messages: []prompts.Message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Temperature: defaultTemperature,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := retryWithBackoff(req, c.client)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	choice := parsed.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	return &Completion{
		Content:   choice.Message.Content,
		Truncated: choice.FinishReason == "length",
		Model:     c.Model,
	}, nil
}

// retryWithBackoff executes an HTTP request with exponential backoff.
// Network errors, 408, 429, and 5xx responses are retried; the request body
// is rewound through GetBody before each retry.
func retryWithBackoff(req *http.Request, client *http.Client) (*http.Response, error) {
	const maxRetries = 3
	const baseDelay = 100 * time.Millisecond

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			fresh, err := req.GetBody()
			if err != nil {
				return lastResp, lastErr
			}
			req.Body = fresh
		}

		resp, err := client.Do(req)
		lastResp = resp
		lastErr = err

		if err != nil {
			if req.Context().Err() != nil {
				return resp, err
			}
			if attempt < maxRetries {
				time.Sleep(baseDelay * time.Duration(1<<attempt))
				continue
			}
			return resp, err
		}

		shouldRetry := false
		switch resp.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			shouldRetry = true
		case 500, 502, 503, 504:
			shouldRetry = true
		}

		if shouldRetry && attempt < maxRetries {
			resp.Body.Close()

			delay := baseDelay * time.Duration(1<<attempt)
			jitter := time.Duration(time.Now().UnixNano() % int64(delay) / 2)
			time.Sleep(delay + jitter)
			continue
		}

		return resp, err
	}

	return lastResp, lastErr
}
