package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIProvider answers enrollment-log questions via the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider with the given API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

// Answer sends the assembled prompt and returns the model's reply.
func (p *OpenAIProvider) Answer(ctx context.Context, question string, entries []LogEntry) (string, error) {
	prompt := buildPrompt(question, entries)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		MaxTokens: openai.Int(500),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response from OpenAI")
	}
	return content, nil
}
