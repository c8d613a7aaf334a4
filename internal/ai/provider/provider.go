// Package provider builds the configured completion backend.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/ai/gemini"
	"github.com/spigell/prospectiq/internal/ai/openai"
	"github.com/spigell/prospectiq/internal/logger"
	"github.com/spigell/prospectiq/internal/secrets"
)

const (
	OpenAI = "openai"
	Gemini = "gemini"

	// APIKeyEnv is read when neither a key file nor an inline key is configured.
	APIKeyEnv = "LLM_API_KEY"
)

// Config mirrors the ai section of the application configuration.
type Config struct {
	Provider     string        `mapstructure:"provider"`
	URL          string        `mapstructure:"provider-url"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max-attempts"`
	RetryDelay   time.Duration `mapstructure:"retry-delay"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

// New returns a logging completer for the configured provider.
// ai.ErrNotConfigured means the caller must run in stub mode.
func New(ctx context.Context, cfg Config, log *zap.Logger) (ai.Completer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "llm api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   APIKeyEnv,
	})
	if err != nil {
		if errors.Is(err, secrets.ErrMissing) {
			return nil, ai.ErrNotConfigured
		}
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = OpenAI
	}

	var (
		completer ai.Completer
		model     string
	)

	switch name {
	case OpenAI:
		client, err := openai.New(openai.Config{
			URL:         cfg.URL,
			APIKey:      key,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			RetryDelay:  cfg.RetryDelay,
		}, log)
		if err != nil {
			return nil, err
		}
		completer, model = client, client.Model()
	case Gemini:
		generator, err := gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      key,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
			RetryDelay:  cfg.RetryDelay,
		}, log)
		if err != nil {
			return nil, err
		}
		completer, model = generator, generator.Model()
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}

	aiLogger := logger.WithCommonFields(log, name, model)
	aiLogger.Info("ai provider configured")

	return ai.WithLogging(completer, aiLogger, cfg.MaxLogLength), nil
}
