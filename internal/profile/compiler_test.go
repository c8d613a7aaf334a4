package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/prospectiq/internal/ai"
)

const description = "Recherche agences e-commerce France 50-200, note > 4.5, excluant freelance"

func failingCompleter(err error) ai.Completer {
	return ai.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "", err
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(description)
	assert.True(t, strings.HasPrefix(prompt, "Tu es un assistant qui compile"))
	assert.True(t, strings.HasSuffix(prompt, "Description:\n"+description))
	assert.Contains(t, prompt, `"exclusion": -20`)
	assert.NotContains(t, prompt, descriptionSentinel)
}

func TestCompileWithoutProviderUsesStub(t *testing.T) {
	t.Parallel()

	result, err := NewCompiler(nil, nil).Compile(context.Background(), description)
	require.NoError(t, err)
	assert.Equal(t, ParseStub(description), result)
}

func TestCompileUsesProvider(t *testing.T) {
	t.Parallel()

	var gotSystem string
	completer := ai.CompleterFunc(func(_ context.Context, system, prompt string) (string, error) {
		gotSystem = system
		return `{"name": "E-commerce FR 50-200", "compiled": {"country": "FR", "sectors": ["ecommerce"]}, "summary": "Agences FR"}`, nil
	})

	result, err := NewCompiler(completer, nil).Compile(context.Background(), description)
	require.NoError(t, err)
	assert.Equal(t, compileSystem, gotSystem)
	assert.Equal(t, "E-commerce FR 50-200", result.Name)
	assert.Equal(t, []string{"ecommerce"}, result.Compiled.Sectors)
}

func TestCompileAuthFailureFallsBackToStub(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	compiler := NewCompiler(failingCompleter(&ai.ProviderError{StatusCode: http.StatusForbidden}), zap.New(core))

	result, err := compiler.Compile(context.Background(), description)
	require.NoError(t, err)
	assert.Equal(t, "Profil FR ecommerce 50-200", result.Name)
	assert.Equal(t, 1, observed.Len())
}

func TestCompilePropagatesOtherFailures(t *testing.T) {
	t.Parallel()

	providerErr := &ai.ProviderError{StatusCode: http.StatusBadGateway}
	compiler := NewCompiler(failingCompleter(providerErr), nil)

	_, err := compiler.Compile(context.Background(), description)
	require.Error(t, err)
	assert.True(t, errors.Is(err, providerErr))

	unparseable := NewCompiler(ai.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "je ne sais pas", nil
	}), nil)
	_, err = unparseable.Compile(context.Background(), description)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestCompileWithFallback(t *testing.T) {
	t.Parallel()

	compiler := NewCompiler(failingCompleter(context.DeadlineExceeded), nil)
	assert.Equal(t, ParseStub(description), compiler.CompileWithFallback(context.Background(), description))
}
