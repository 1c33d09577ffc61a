// Package embedder calls a remote Ollama-compatible embedding endpoint.
package embedder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docdex/internal/logsink"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 120 * time.Second

// Embedding is one vector returned by the embedding service. Duration is the
// wall-clock time of the request and is populated even when the request
// fails, so callers can record timing for both outcomes.
type Embedding struct {
	Values    []float32
	Duration  time.Duration
	CreatedAt time.Time
}

// Client issues one blocking request per Embed call; there is no batching
// across texts.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	log     logsink.Sink
}

// New creates a client targeting baseURL with the given model. A zero
// timeout falls back to DefaultTimeout; a nil sink disables logging.
func New(baseURL, model string, timeout time.Duration, log logsink.Sink) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logsink.Nop{}
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Embed requests one embedding for text. On failure the returned Embedding
// carries the elapsed duration and no values.
func (c *Client) Embed(text string) (Embedding, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return Embedding{}, fmt.Errorf("marshal embed request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Post(c.baseURL+"/api/embeddings", "application/json", bytes.NewReader(body))
	if err != nil {
		elapsed := time.Since(start)
		c.log.Append(fmt.Sprintf("ERROR:Error connecting to embedding service: %v", err))
		return Embedding{Duration: elapsed, CreatedAt: time.Now()}, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Append(fmt.Sprintf("ERROR:Error reading embedding response: %v", err))
		return Embedding{Duration: elapsed, CreatedAt: time.Now()}, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Append(fmt.Sprintf("ERROR:Embedding service returned %d", resp.StatusCode))
		return Embedding{Duration: elapsed, CreatedAt: time.Now()},
			fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(payload))
	}

	values, err := parseEmbedding(payload)
	if err != nil {
		c.log.Append(fmt.Sprintf("ERROR:Could not identify embedding format in response: %s", string(payload)))
		return Embedding{Duration: elapsed, CreatedAt: time.Now()}, err
	}

	return Embedding{Values: values, Duration: elapsed, CreatedAt: time.Now()}, nil
}
