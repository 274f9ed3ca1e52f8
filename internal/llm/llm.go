// Package llm wraps the text-generation backends used by the summarization and
// tagging stages behind a single Complete call.
package llm

import (
	"context"
	"fmt"
	"time"
)

type Options struct {
	MaxTokens   int
	Temperature float32
}

type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// New builds a completer for the configured backend type ("openai" or "ollama").
func New(kind, baseURL, apiKey, model string, timeout time.Duration) (Completer, error) {
	switch kind {
	case "openai":
		return NewOpenAI(baseURL, apiKey, model, timeout), nil
	case "ollama":
		return NewOllama(baseURL, model, timeout)
	default:
		return nil, fmt.Errorf("unknown completer type %q", kind)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
