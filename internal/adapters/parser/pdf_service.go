// Package parser provides document parsing adapters.
// Clean Architecture: Adapter implementing ports.PDFParser.
// PDF text extraction runs in an external parse service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ServicePDFParser implements ports.PDFParser by calling an external
// HTTP parse service that returns one text per page.
type ServicePDFParser struct {
	serviceURL string
	client     *http.Client
}

// NewServicePDFParser creates a PDF parser backed by the parse service.
func NewServicePDFParser(serviceURL string) *ServicePDFParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &ServicePDFParser{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// parseResponse is the parse service response format.
type parseResponse struct {
	Pages []string `json:"pages"`
	Error string   `json:"error,omitempty"`
}

// Parse extracts ordered page texts from PDF bytes.
func (p *ServicePDFParser) Parse(ctx context.Context, data []byte, filename string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("PDF parse error: %s", result.Error)
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("PDF service returned no pages")
	}

	return result.Pages, nil
}

// IsServiceHealthy checks if the parse service is reachable.
func (p *ServicePDFParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
