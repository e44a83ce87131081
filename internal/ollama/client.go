// Package ollama is a minimal client for a locally hosted Ollama-style
// generation backend. Streaming responses arrive as newline-delimited JSON
// frames over a chunked HTTP body; the client turns them into a finite,
// non-restartable sequence of text fragments.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
)

// Message is one role/content turn submitted to the model. Images carries
// base64-encoded payloads for vision-capable calls.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Options are the generation options passed through to the backend.
type Options struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

// ChatRequest is the wire format of POST /api/chat.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	Options   Options   `json:"options"`
	KeepAlive string    `json:"keep_alive,omitempty"`
}

// chatFrame is one newline-delimited response record.
type chatFrame struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Fragment is one incremental piece of generated text. A Fragment with Err
// set is terminal; the channel closes after it.
type Fragment struct {
	Content string
	Err     error
}

// Client talks to one generation backend. It is an explicitly constructed
// dependency so tests can point it at a fake server.
type Client struct {
	baseURL     string
	model       string
	visionModel string
	opts        Options
	keepAlive   string
	http        *http.Client
	logger      *logrus.Logger
}

// NewClient creates a client from configuration.
func NewClient(cfg config.OllamaConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		opts: Options{
			Temperature: cfg.Temperature,
			NumCtx:      cfg.NumCtx,
		},
		keepAlive: cfg.KeepAlive,
		// Generation can legitimately take minutes; rely on ctx for cancellation.
		http:   &http.Client{Timeout: 0},
		logger: logger,
	}
}

// ChatStream opens one streaming generation call for the given messages.
// A non-success status or an empty body is returned as an error before any
// fragment is produced; after that, failures arrive as a terminal Fragment.
func (c *Client) ChatStream(ctx context.Context, messages []Message) (<-chan Fragment, error) {
	return c.stream(ctx, ChatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    true,
		Options:   c.opts,
		KeepAlive: c.keepAlive,
	})
}

// ChatVisionStream is the multimodal entry point: the images are attached to
// the final user turn and the vision model is used.
func (c *Client) ChatVisionStream(ctx context.Context, messages []Message, images []string) (<-chan Fragment, error) {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			msgs[i].Images = images
			break
		}
	}

	model := c.visionModel
	if model == "" {
		model = c.model
	}

	return c.stream(ctx, ChatRequest{
		Model:     model,
		Messages:  msgs,
		Stream:    true,
		Options:   c.opts,
		KeepAlive: c.keepAlive,
	})
}

func (c *Client) stream(ctx context.Context, req ChatRequest) (<-chan Fragment, error) {
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	// A body with zero bytes is a backend failure, not an empty generation.
	reader := bufio.NewReader(resp.Body)
	if _, err := reader.Peek(1); err != nil {
		resp.Body.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("generation backend returned an empty body")
		}
		return nil, fmt.Errorf("reading generation stream: %w", err)
	}

	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var frame chatFrame
			if err := json.Unmarshal(line, &frame); err != nil {
				c.logger.WithError(err).Warn("skipping malformed stream frame")
				continue
			}

			if frame.Done {
				// Terminate immediately; anything still buffered is discarded.
				return
			}

			if frame.Message.Content == "" {
				continue
			}

			select {
			case fragments <- Fragment{Content: frame.Message.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case fragments <- Fragment{Err: fmt.Errorf("reading generation stream: %w", err)}:
			case <-ctx.Done():
			}
		}
		// Connection close without a done frame ends the sequence.
	}()

	return fragments, nil
}

// Complete performs a single non-streaming generation call and returns the
// full response text. Used for title generation.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.post(ctx, ChatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    false,
		Options:   c.opts,
		KeepAlive: c.keepAlive,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var frame chatFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return "", fmt.Errorf("decoding generation response: %w", err)
	}

	return frame.Message.Content, nil
}

// Health probes the backend's tag listing; success means healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("generation backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation backend returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) post(ctx context.Context, req ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("generation backend returned status %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"model":      req.Model,
		"messages":   len(req.Messages),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("generation request opened")

	return resp, nil
}
