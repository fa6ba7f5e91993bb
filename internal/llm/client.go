// Package llm calls an OpenAI-compatible chat-completions and embeddings API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://api.openai.com"
	defaultChatModel      = "gpt-4.1-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
)

// ChatModel abstracts chat completion so calling code stays testable.
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, opts GenerationOptions) (string, error)
}

// Embedder abstracts embedding generation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HTTPDoer allows tests to fake HTTP transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GenerationOptions carries the per-call-site model presets. The SQL
// generation stage and the synthesis stage use different token budgets and
// temperatures; both are fixed at construction, never mutated globally.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client calls the chat completions and embeddings endpoints.
type Client struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	httpClient     HTTPDoer
}

// NewClient creates a client with sane defaults.
func NewClient(apiKey, baseURL, embeddingModel string, httpClient HTTPDoer) *Client {
	cleanBaseURL := strings.TrimSpace(baseURL)
	if cleanBaseURL == "" {
		cleanBaseURL = defaultBaseURL
	}
	if strings.TrimSpace(embeddingModel) == "" {
		embeddingModel = defaultEmbeddingModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:         strings.TrimSpace(apiKey),
		baseURL:        strings.TrimRight(cleanBaseURL, "/"),
		embeddingModel: embeddingModel,
		httpClient:     httpClient,
	}
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice   `json:"choices"`
	Error   apiErrorDetail `json:"error"`
}

type chatChoice struct {
	Message struct {
		Content json.RawMessage `json:"content"`
		Refusal string          `json:"refusal"`
	} `json:"message"`
}

type responseContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiErrorEnvelope struct {
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Message string `json:"message"`
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error apiErrorDetail `json:"error"`
}

// Complete sends one chat completion request and returns the raw text content.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string, opts GenerationOptions) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errors.New("api key is empty")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultChatModel
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userMessage})

	payload, err := json.Marshal(chatCompletionsRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	body, status, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", statusError("chat", status, body)
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error.Message != "" {
		return "", fmt.Errorf("model error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	message := parsed.Choices[0].Message
	if strings.TrimSpace(message.Refusal) != "" {
		return "", fmt.Errorf("model refusal: %s", strings.TrimSpace(message.Refusal))
	}

	content, err := parseMessageContent(message.Content)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("model returned empty content")
	}
	return content, nil
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("api key is empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}

	payload, err := json.Marshal(embeddingsRequest{
		Model: c.embeddingModel,
		Input: []string{strings.TrimSpace(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	body, status, err := c.post(ctx, "/v1/embeddings", payload)
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, statusError("embeddings", status, body)
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if parsed.Error.Message != "" {
		return nil, fmt.Errorf("embeddings error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("embeddings response is empty")
	}
	return parsed.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read model response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func statusError(endpoint string, status int, body []byte) error {
	var apiErr apiErrorEnvelope
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%s status %d: %s", endpoint, status, apiErr.Error.Message)
	}
	return fmt.Errorf("%s status %d: %s", endpoint, status, strings.TrimSpace(string(body)))
}

func parseMessageContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asParts []responseContentPart
	if err := json.Unmarshal(raw, &asParts); err == nil {
		var builder strings.Builder
		for _, part := range asParts {
			if part.Type == "text" {
				builder.WriteString(part.Text)
			}
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("unsupported message content format: %s", string(raw))
}
