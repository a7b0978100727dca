package service

import (
	"context"
	"time"

	appErr "codejudge/pkg/errors"
)

// TokenLimiter is a counting limiter bounding concurrent executions.
type TokenLimiter struct {
	tokens chan struct{}
}

// NewTokenLimiter creates a limiter with a fixed capacity.
func NewTokenLimiter(size int) *TokenLimiter {
	if size <= 0 {
		size = 1
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &TokenLimiter{tokens: tokens}
}

// Acquire blocks until a token is available, ctx is canceled or wait
// elapses. A zero wait blocks until ctx is done.
func (l *TokenLimiter) Acquire(ctx context.Context, wait time.Duration) error {
	var expired <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return appErr.New(appErr.JudgeQueueFull).WithMessage("worker pool is full")
	}
}

// Release returns a token to the limiter.
func (l *TokenLimiter) Release() {
	select {
	case l.tokens <- struct{}{}:
	default:
	}
}

// Available reports the number of free tokens.
func (l *TokenLimiter) Available() int {
	return len(l.tokens)
}
