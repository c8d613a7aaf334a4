package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/utils"
)

const (
	providerName = "gemini"

	DefaultModel = "gemini-2.5-pro"

	defaultMaxAttempts = 2
	defaultRetryDelay  = 800 * time.Millisecond
	// Quota errors asking to wait longer than this are returned right away.
	maxQuotaDelay = 10 * time.Second
)

var retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

// modelsAPI is the part of genai.Models the generator needs.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config for the Gemini backend.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Generator wraps the Google GenAI client and implements ai.Completer.
type Generator struct {
	models      modelsAPI
	model       string
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend.
// It returns ai.ErrNotConfigured when no key is given.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ai.ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, logger), nil
}

func newGenerator(models modelsAPI, cfg Config, logger *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:      models,
		model:       model,
		timeout:     cfg.Timeout,
		maxAttempts: attempts,
		retryDelay:  delay,
		logger:      logger,
	}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Complete sends the prompt with the system instruction and returns the joined text parts.
func (g *Generator) Complete(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		out, err := g.generate(ctx, prompt, config)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == g.maxAttempts || !shouldRetry(ctx, err) {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", g.retryDelay),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, g.retryDelay); err != nil {
			return "", fmt.Errorf("waiting for retry: %w", err)
		}
	}

	return "", toProviderError(lastErr)
}

func (g *Generator) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		delay, ok := quotaDelay(apiErr.Message)
		return !ok || delay <= maxQuotaDelay
	case apiErr.Code >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func quotaDelay(message string) (time.Duration, bool) {
	match := retryAfterRe.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// toProviderError maps genai API failures onto ai.ProviderError so callers can match auth failures.
func toProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.ProviderError{
			Provider:   providerName,
			StatusCode: apiErr.Code,
			Body:       utils.TruncateRunes(apiErr.Message, 200),
		}
	}
	return err
}
