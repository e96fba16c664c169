// Package llm - openai.go adapts the OpenAI chat completions API
// (or any OpenAI-compatible endpoint) to ports.Generator.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements ports.Generator using the OpenAI API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	opts   GenerationOptions
}

// NewOpenAIGenerator creates an OpenAI generation adapter. baseURL may
// point at any OpenAI-compatible server; empty means api.openai.com.
func NewOpenAIGenerator(apiKey, baseURL, model string, opts GenerationOptions) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	opts.applyDefaults()
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		opts:   opts,
	}
}

// Generate produces a response for the prompt as a single user turn.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
