package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/prospectiq/internal/ai"
)

type fakeCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	calls []fakeCall
	queue []fakeResponse
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models modelsAPI, attempts int) *Generator {
	return newGenerator(models, Config{Model: "gemini-pro", MaxAttempts: attempts, RetryDelay: time.Millisecond}, zap.NewNop())
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(context.Background(), Config{}, nil); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	t.Parallel()

	g := newGenerator(&fakeModels{}, Config{}, nil)
	if g.Model() != DefaultModel {
		t.Fatalf("unexpected model %q", g.Model())
	}
	if g.maxAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", g.maxAttempts)
	}
	if g.retryDelay != 800*time.Millisecond {
		t.Fatalf("expected 800ms retry delay, got %s", g.retryDelay)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	output, err := newTestGenerator(models, 2).Complete(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" {
			t.Fatalf("unexpected model %q", call.model)
		}
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.config.Temperature == nil || *call.config.Temperature != 0.2 {
			t.Fatalf("expected temperature 0.2")
		}
		if len(call.contents) != 1 || call.contents[0].Parts[0].Text != "message" {
			t.Fatalf("unexpected contents: %+v", call.contents)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	_, err := newTestGenerator(models, 2).Complete(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	_, err := newTestGenerator(models, 3).Complete(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorMapsAuthErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED", Message: "API key not valid"})

	_, err := newTestGenerator(models, 2).Complete(context.Background(), "sys", "msg")
	if !errors.Is(err, ai.ErrProviderAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(models.calls) != 1 {
		t.Fatalf("auth errors must not be retried, got %d calls", len(models.calls))
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{}, nil)

	if _, err := newTestGenerator(models, 1).Complete(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error on empty response")
	}
	if models.calls[0].config.SystemInstruction != nil {
		t.Fatal("empty system instruction must not be sent")
	}
}
