package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// =============================================================================
// OPENAI-COMPATIBLE PREDICTOR
// =============================================================================

// OpenAIPredictor routes questions through any OpenAI-compatible chat
// endpoint. Pointing BaseURL at a local Ollama server covers fully
// offline runs with a small instruct model.
type OpenAIPredictor struct {
	client *openai.Client
	model  string
}

// NewOpenAIPredictor creates a predictor against an OpenAI-compatible
// API. baseURL may be empty for the hosted service.
func NewOpenAIPredictor(apiKey, baseURL, model string) (*OpenAIPredictor, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIPredictor{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// PredictRoute asks the model for a route label.
func (p *OpenAIPredictor) PredictRoute(ctx context.Context, question string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: routerPrompt(question)},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return "", fmt.Errorf("chat route prediction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no route returned")
	}
	return extractLabel(resp.Choices[0].Message.Content), nil
}
