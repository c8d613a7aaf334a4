package profile

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/prospect"
)

const (
	compileSystem       = "You output STRICT JSON only. No markdown, no code blocks."
	descriptionSentinel = "{{DESCRIPTION}}"
)

//go:embed prompt.md
var promptTemplate string

// Compiler turns a free-text ICP description into a compiled profile.
type Compiler struct {
	completer ai.Completer
	logger    *zap.Logger
}

// NewCompiler returns a Compiler. A nil completer means stub mode.
func NewCompiler(completer ai.Completer, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{completer: completer, logger: logger}
}

// BuildPrompt renders the compile instructions for the description.
func BuildPrompt(nl string) string {
	return strings.Replace(strings.TrimRight(promptTemplate, "\n"), descriptionSentinel, nl, 1)
}

// Compile asks the provider for a profile. Without a provider, or when the provider
// rejects the credentials, the stub parser answers instead. Other failures are returned.
func (c *Compiler) Compile(ctx context.Context, nl string) (prospect.CompiledResult, error) {
	if c.completer == nil {
		c.logger.Debug("no ai provider configured, using stub parser")
		return ParseStub(nl), nil
	}

	raw, err := c.completer.Complete(ctx, compileSystem, BuildPrompt(nl))
	if err != nil {
		if errors.Is(err, ai.ErrProviderAuth) {
			c.logger.Warn("ai provider rejected credentials, using stub parser", zap.Error(err))
			return ParseStub(nl), nil
		}
		return prospect.CompiledResult{}, fmt.Errorf("compile profile: %w", err)
	}

	result, err := Normalize(raw)
	if err != nil {
		return prospect.CompiledResult{}, fmt.Errorf("compile profile: %w", err)
	}
	return result, nil
}

// CompileWithFallback is Compile with the stub parser as the last resort for every failure.
func (c *Compiler) CompileWithFallback(ctx context.Context, nl string) prospect.CompiledResult {
	result, err := c.Compile(ctx, nl)
	if err != nil {
		c.logger.Warn("profile compilation failed, using stub parser", zap.Error(err))
		return ParseStub(nl)
	}
	return result
}
