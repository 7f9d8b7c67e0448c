package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

type retrying struct {
	Provider
	attempts int
	delay    time.Duration
}

// WithRetry retries transient failures (rate limits, server errors,
// network errors) with exponential backoff starting at delay.
func WithRetry(p Provider, attempts int, delay time.Duration) Provider {
	if attempts < 1 {
		attempts = 1
	}
	return &retrying{Provider: p, attempts: attempts, delay: delay}
}

func (r *retrying) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	for i := 0; ; i++ {
		out, err := r.Provider.Complete(ctx, system, prompt, maxTokens)
		if err == nil || i+1 >= r.attempts || !isTransient(err) {
			return out, err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay << i):
		}
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type fallback []Provider

// Fallback tries each provider in order until one succeeds
func Fallback(providers ...Provider) Provider {
	return fallback(providers)
}

func (f fallback) Name() string {
	names := make([]string, len(f))
	for i, p := range f {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

func (f fallback) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if len(f) == 0 {
		return "", ErrNoProvider
	}
	var errs []error
	for _, p := range f {
		out, err := p.Complete(ctx, system, prompt, maxTokens)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return "", errors.Join(errs...)
}
