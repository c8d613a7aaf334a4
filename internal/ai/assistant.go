package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotConfigured is returned by provider constructors when the endpoint or the key is missing.
	// Callers switch to stub mode on it.
	ErrNotConfigured = errors.New("ai provider is not configured")
	// ErrProviderAuth matches provider errors caused by rejected credentials (401/403).
	ErrProviderAuth = errors.New("ai provider rejected credentials")
)

// Completer is the text-completion collaborator: a system instruction and a prompt in, raw text out.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// ProviderError is a non-2xx answer from a completion provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	provider := e.Provider
	if provider == "" {
		provider = "llm"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s HTTP %d", provider, e.StatusCode)
	}
	return fmt.Sprintf("%s HTTP %d: %s", provider, e.StatusCode, body)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderAuth && IsAuthStatus(e.StatusCode)
}

// Temporary reports whether retrying the same request may succeed.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsAuthStatus reports whether the HTTP status means the credentials were rejected.
func IsAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
