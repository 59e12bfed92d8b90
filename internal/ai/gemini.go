package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiProvider answers enrollment-log questions via the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a provider with the given API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

// Answer sends the assembled prompt and returns the model's reply.
func (p *GeminiProvider) Answer(ctx context.Context, question string, entries []LogEntry) (string, error) {
	prompt := buildPrompt(question, entries)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	content := strings.TrimSpace(result.Text())
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return content, nil
}
