// Package llm provides text generation adapters.
// Clean Architecture: Adapters implementing ports.Generator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GenerationOptions carries the sampling parameters shared by all
// generator adapters.
type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int
	Timeout         time.Duration
}

func (o *GenerationOptions) applyDefaults() {
	if o.Temperature <= 0 {
		o.Temperature = 0.3
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 8192
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// GeminiGenerator implements ports.Generator against the Google
// Generative Language REST API.
type GeminiGenerator struct {
	baseURL string
	apiKey  string
	model   string
	opts    GenerationOptions
	client  *http.Client
}

// NewGeminiGenerator creates a Gemini generation adapter.
func NewGeminiGenerator(baseURL, apiKey, model string, opts GenerationOptions) *GeminiGenerator {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	opts.applyDefaults()
	return &GeminiGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// Generate produces a response for the prompt. Blocking unary call;
// the configured timeout is the only cancellation mechanism besides
// the caller's context.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.opts.Temperature,
			MaxOutputTokens: g.opts.MaxOutputTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini returned status %d", resp.StatusCode)
	}

	var genResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var out string
	for _, part := range genResp.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out, nil
}
