// Package httpembed implements promptintent.Embedder over a local
// Ollama-compatible /api/embed endpoint, grounded on glyphoxa's Ollama
// embeddings provider but simplified to the single-text, context-free
// convention pkg/worker's provider interfaces use throughout.
package httpembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is used when New is given an empty baseURL.
const DefaultBaseURL = "http://localhost:11434"

// DefaultTimeout bounds a single embed request.
const DefaultTimeout = 10 * time.Second

// Engine implements promptintent.Embedder over an Ollama-compatible
// /api/embed endpoint.
type Engine struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// New builds an Engine. An empty baseURL defaults to DefaultBaseURL.
func New(baseURL, model string) *Engine {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Engine{
		baseURL: baseURL,
		model:   model,
		timeout: DefaultTimeout,
		client:  &http.Client{},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed computes a single embedding vector for text.
func (e *Engine) Embed(text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("httpembed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpembed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpembed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpembed: unexpected status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("httpembed: decode response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("httpembed: empty embeddings in response")
	}
	return result.Embeddings[0], nil
}
