package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexzhu0/voicepipe/internal/metrics"
)

// Config contains synthesis client configuration
type Config struct {
	Endpoint string
	APIKey   string
	Voice    string
	Timeout  time.Duration
}

// Client performs one-shot speech synthesis requests. The request body
// is JSON; the response is the raw audio blob.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// synthesisRequest is the JSON request body
type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// NewClient creates a synthesis client. The metrics argument may be nil
// when metric collection is disabled.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		metrics: m,
	}, nil
}

// Synthesize converts the given text to audio and returns the audio
// bytes as delivered by the service
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	body, err := json.Marshal(synthesisRequest{Text: text, Voice: c.config.Voice})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	startTime := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordOutcome(false, startTime)
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordOutcome(false, startTime)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordOutcome(false, startTime)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		c.recordOutcome(false, startTime)
		return nil, fmt.Errorf("synthesis returned empty audio")
	}

	c.recordOutcome(true, startTime)
	c.logger.Debug("Synthesis complete",
		"text_len", len([]rune(text)),
		"audio_bytes", len(respBody))
	return respBody, nil
}

func (c *Client) recordOutcome(ok bool, startTime time.Time) {
	if c.metrics != nil {
		c.metrics.RecordSynthesis(ok, time.Since(startTime).Seconds())
	}
}
