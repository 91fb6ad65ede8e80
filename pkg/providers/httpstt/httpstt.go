// Package httpstt implements STTEngine over a multipart-upload HTTP
// transcription API, the shape the teacher's Groq provider used.
package httpstt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lokutor-ai/callcue/pkg/audioio"
)

// DefaultTimeout bounds a single transcription request; the worker's own
// Governor enforces the user-visible 1.5s latency budget independently,
// so this exists only to bound a hung connection.
const DefaultTimeout = 10 * time.Second

// Engine transcribes audio snapshots by uploading a WAV-encoded body to
// an OpenAI-compatible transcription endpoint.
type Engine struct {
	apiKey  string
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// New builds an Engine targeting url (an OpenAI-compatible
// /audio/transcriptions endpoint) with the given API key and model name.
func New(apiKey, url, model string) *Engine {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Engine{
		apiKey:  apiKey,
		url:     url,
		model:   model,
		timeout: DefaultTimeout,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Transcribe encodes samples as a WAV file and uploads it as a multipart
// form, returning the transcribed text.
func (e *Engine) Transcribe(samples []float32) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	wavData := audioio.EncodeWAV(samples, audioio.SampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", e.model); err != nil {
		return "", fmt.Errorf("httpstt: write model field: %w", err)
	}

	part, err := writer.CreateFormFile("file", "snapshot.wav")
	if err != nil {
		return "", fmt.Errorf("httpstt: create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return "", fmt.Errorf("httpstt: copy wav body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("httpstt: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, body)
	if err != nil {
		return "", fmt.Errorf("httpstt: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("httpstt: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody any
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("httpstt: status %d: %v", resp.StatusCode, errBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("httpstt: decode response: %w", err)
	}
	return result.Text, nil
}
