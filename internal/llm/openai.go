package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatProvider implements Provider over any OpenAI-compatible chat
// completions endpoint.
type ChatProvider struct {
	name    string
	baseURL string
	client  *openai.Client
	model   string
}

// NewChatProvider creates a provider. An empty baseURL uses the OpenAI API.
func NewChatProvider(name, apiKey, baseURL, model string) *ChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &ChatProvider{
		name:    name,
		baseURL: cfg.BaseURL,
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
	}
}

func (p *ChatProvider) Name() string {
	return p.name
}

func (p *ChatProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s completion: response has no choices", p.name)
	}

	return &CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}
