// Package wsstt implements STTEngine over a persistent websocket
// connection to a streaming transcription service, reusing the teacher's
// dial-once-reuse connection pattern from its TTS client.
package wsstt

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// DefaultTimeout bounds a single request/response round trip.
const DefaultTimeout = 10 * time.Second

// Engine transcribes audio snapshots over a long-lived websocket
// connection, dialing lazily on first use and redialing after any
// connection error.
type Engine struct {
	apiKey string
	host   string

	mu   sync.Mutex
	conn *websocket.Conn
}

// New builds an Engine targeting a streaming transcription host.
func New(apiKey, host string) *Engine {
	return &Engine{apiKey: apiKey, host: host}
}

func (e *Engine) getConn(ctx context.Context) (*websocket.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		return e.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: e.host, Path: "/v1/transcribe", RawQuery: "api_key=" + e.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsstt: dial failed: %w", err)
	}
	e.conn = conn
	return conn, nil
}

// transcribeRequest is the wire request sent for each snapshot.
type transcribeRequest struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// transcribeResponse is the wire response returned for each snapshot.
type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends samples over the websocket connection and waits for
// the matching transcription response.
func (e *Engine) Transcribe(samples []float32) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	conn, err := e.getConn(ctx)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	req := transcribeRequest{Samples: samples, SampleRate: 16000}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		e.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write request")
		return "", fmt.Errorf("wsstt: write failed: %w", err)
	}

	var resp transcribeResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		e.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to read response")
		return "", fmt.Errorf("wsstt: read failed: %w", err)
	}

	return resp.Text, nil
}

// Close closes the underlying connection, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close(websocket.StatusNormalClosure, "shutting down")
	e.conn = nil
	return err
}
