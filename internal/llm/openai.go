package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// openAIBackend serves OpenAI and any OpenAI-compatible API (Groq).
type openAIBackend struct {
	client *openai.Client
}

func newOpenAIBackend(key, baseURL string, httpClient *http.Client) *openAIBackend {
	config := openai.DefaultConfig(key)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = httpClient
	return &openAIBackend{client: openai.NewClientWithConfig(config)}
}

func (b *openAIBackend) complete(ctx context.Context, req request) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.User,
			},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
