// Package embedding provides embedder adapters.
// Clean Architecture: Adapters implementing ports.Embedder.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiEmbedder implements ports.Embedder against the Google
// Generative Language REST API.
type GeminiEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiEmbedder creates a Gemini embedding adapter.
func NewGeminiEmbedder(baseURL, apiKey, model string, timeout time.Duration) *GeminiEmbedder {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = "embedding-001"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiEmbedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiEmbedding `json:"embedding"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

// Embed generates an embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := geminiEmbedRequest{
		Model:   "models/" + e.model,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", e.baseURL, e.model, e.apiKey)
	var embedResp geminiEmbedResponse
	if err := e.post(ctx, url, reqBody, &embedResp); err != nil {
		return nil, err
	}
	if len(embedResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("Gemini returned an empty embedding")
	}
	return embedResp.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		reqBody.Requests[i] = geminiEmbedRequest{
			Model:   "models/" + e.model,
			Content: geminiContent{Parts: []geminiPart{{Text: t}}},
		}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents?key=%s", e.baseURL, e.model, e.apiKey)
	var batchResp geminiBatchEmbedResponse
	if err := e.post(ctx, url, reqBody, &batchResp); err != nil {
		return nil, err
	}
	if len(batchResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d texts", len(batchResp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range batchResp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GeminiEmbedder) post(ctx context.Context, url string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Gemini returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
