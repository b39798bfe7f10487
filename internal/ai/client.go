package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned when no model API key could be found.
var ErrNoAPIKey = errors.New("no model API key configured")

// ChatStream yields streamed completion chunks until io.EOF.
type ChatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatModel opens streaming chat completions.
type ChatModel interface {
	Stream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error)
}

// OpenAIModel talks to any OpenAI-compatible endpoint. BuildFast points it
// at OpenRouter.
type OpenAIModel struct {
	client *openai.Client
}

// NewOpenAIModel creates a model client for baseURL authenticated with apiKey.
func NewOpenAIModel(apiKey, baseURL string, httpClient *http.Client) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg)}, nil
}

// Stream implements ChatModel.
func (m *OpenAIModel) Stream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	req.Stream = true
	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
