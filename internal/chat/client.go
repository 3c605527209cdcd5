package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alexzhu0/voicepipe/internal/metrics"
)

// Config contains chat completion client configuration
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
}

// rateLimitDelayFactor stretches the backoff after an HTTP 429, giving
// the remote quota window time to roll over before the next attempt.
const rateLimitDelayFactor = 5

// Client sends transcripts to an OpenAI-compatible completion API and
// returns the assistant reply. Rate-limited and server-side failures
// are retried with exponential backoff; rate limiting gets an extended
// delay.
type Client struct {
	config      Config
	api         *openai.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	backoffUnit time.Duration
}

// NewClient creates a chat client. The metrics argument may be nil when
// metric collection is disabled.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}
	apiConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		config:      config,
		api:         openai.NewClientWithConfig(apiConfig),
		logger:      logger,
		metrics:     m,
		backoffUnit: time.Second,
	}, nil
}

// Reply generates an assistant reply for the given user text
func (c *Client) Reply(ctx context.Context, userText string) (string, error) {
	if userText == "" {
		return "", fmt.Errorf("user text cannot be empty")
	}

	messages := []openai.ChatCompletionMessage{}
	if c.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	request := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: float32(c.config.Temperature),
		MaxTokens:   c.config.MaxTokens,
	}

	if c.metrics != nil {
		c.metrics.RecordChatRequest()
	}
	startTime := time.Now()

	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.RecordChatRetry()
			}

			backoffTime := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoffUnit
			if isRateLimited(lastErr) {
				backoffTime *= rateLimitDelayFactor
			}
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			c.logger.Warn("Retrying chat completion",
				"attempt", attempt,
				"backoff", backoffTime,
				"error", lastErr)

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				if c.metrics != nil {
					c.metrics.RecordChatFailure(time.Since(startTime).Seconds())
				}
				return "", ctx.Err()
			}
		}

		response, err := c.api.CreateChatCompletion(ctx, request)
		if err == nil {
			if len(response.Choices) == 0 {
				lastErr = fmt.Errorf("completion returned no choices")
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordChatSuccess(time.Since(startTime).Seconds())
			}
			return response.Choices[0].Message.Content, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	if c.metrics != nil {
		c.metrics.RecordChatFailure(time.Since(startTime).Seconds())
	}
	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// isRateLimited reports whether the error is an HTTP 429 rejection
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests
}

// isRetryableError reports whether the request should be attempted
// again. Rate limiting and server-side errors are retryable; context
// cancellation and client-side errors are not.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= 500
	}

	// Transport-level errors with no API response are retryable
	return true
}
