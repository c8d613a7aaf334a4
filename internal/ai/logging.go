package ai

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/utils"
)

const defaultMaxLogLength = 200

type loggingCompleter struct {
	next      Completer
	logger    *zap.Logger
	maxLogLen int
}

// WithLogging wraps a completer and logs truncated prompt and response previews at debug level.
func WithLogging(next Completer, logger *zap.Logger, maxLogLength int) Completer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &loggingCompleter{next: next, logger: logger, maxLogLen: maxLogLength}
}

func (l *loggingCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	l.logger.Debug("generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, l.maxLogLen)),
	)

	started := time.Now()
	out, err := l.next.Complete(ctx, system, prompt)
	if err != nil {
		l.logger.Warn("generate content failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return "", err
	}

	l.logger.Debug("generate content response",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("response_length", utf8.RuneCountInString(out)),
		zap.String("response_preview", utils.TruncateForLog(out, l.maxLogLen)),
	)
	return out, nil
}
