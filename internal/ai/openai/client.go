package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/utils"
)

const (
	providerName = "openai"

	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 12 * time.Second
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = 800 * time.Millisecond

	temperature  = 0.2
	maxErrorBody = 200
	maxBodyBytes = 4 << 20
)

// Config describes an OpenAI-compatible chat completions endpoint.
type Config struct {
	// URL is the full chat completions endpoint, used as is.
	URL    string
	APIKey string
	Model  string
	// Timeout bounds a single attempt.
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	HTTPClient *http.Client

	cfg    Config
	logger *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// New validates the configuration and fills the defaults.
// It returns ai.ErrNotConfigured when either the URL or the key is missing.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, ai.ErrNotConfigured
	}

	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		HTTPClient: &http.Client{},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}

// Complete sends the system instruction and the prompt and returns the first choice content.
// Transport failures, 429 and 5xx answers are retried up to MaxAttempts.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		out, err := c.do(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == c.cfg.MaxAttempts || !c.retryable(ctx, err) {
			break
		}

		c.logger.Warn("llm request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", c.cfg.RetryDelay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, c.cfg.RetryDelay); err != nil {
			return "", fmt.Errorf("waiting for retry: %w", err)
		}
	}

	return "", lastErr
}

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return "", &ai.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       utils.TruncateRunes(string(body), maxErrorBody),
		}
	}

	return extractContent(body)
}

// extractContent reads choices[0].message.content, then choices[0].text, then falls back to the whole body.
func extractContent(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("llm response is not valid json")
	}

	if content := gjson.GetBytes(body, "choices.0.message.content"); content.Exists() && content.Type != gjson.Null {
		return content.String(), nil
	}
	if text := gjson.GetBytes(body, "choices.0.text"); text.Exists() && text.Type != gjson.Null {
		return text.String(), nil
	}
	return string(body), nil
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Temporary()
	}
	return true
}
