package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI PREDICTOR
// =============================================================================

// GenAIPredictor routes questions using Google's Gemini API.
type GenAIPredictor struct {
	client *genai.Client
	model  string
}

// NewGenAIPredictor creates a Gemini-backed predictor.
func NewGenAIPredictor(ctx context.Context, apiKey, model string) (*GenAIPredictor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIPredictor{client: client, model: model}, nil
}

// PredictRoute asks the model for a route label.
func (p *GenAIPredictor) PredictRoute(ctx context.Context, question string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(systemPrompt+"\n\n"+routerPrompt(question), genai.RoleUser),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI route prediction failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no route returned")
	}
	return extractLabel(text), nil
}
