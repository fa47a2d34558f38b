// Package limiter provides the weighted admission gate shared by every
// guarded execution that runs under one execution identity.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// TokenLimiter is a weighted counting limiter.
// Requests heavier than the capacity are clamped so they can still run alone.
type TokenLimiter struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
}

// NewTokenLimiter creates a limiter with a fixed capacity.
func NewTokenLimiter(size int64) *TokenLimiter {
	if size <= 0 {
		size = 1
	}
	return &TokenLimiter{
		sem:      semaphore.NewWeighted(size),
		capacity: size,
	}
}

// Acquire blocks until n tokens are available or ctx is canceled.
func (l *TokenLimiter) Acquire(ctx context.Context, n int64) error {
	n = l.clamp(n)
	if err := l.sem.Acquire(ctx, n); err != nil {
		return err
	}
	l.inUse.Add(n)
	return nil
}

// TryAcquire takes n tokens without waiting.
func (l *TokenLimiter) TryAcquire(n int64) bool {
	n = l.clamp(n)
	if !l.sem.TryAcquire(n) {
		return false
	}
	l.inUse.Add(n)
	return true
}

// Release returns n tokens to the limiter.
func (l *TokenLimiter) Release(n int64) {
	n = l.clamp(n)
	l.inUse.Add(-n)
	l.sem.Release(n)
}

// Capacity reports the total number of tokens.
func (l *TokenLimiter) Capacity() int64 {
	return l.capacity
}

// InUse reports the tokens currently held.
func (l *TokenLimiter) InUse() int64 {
	return l.inUse.Load()
}

func (l *TokenLimiter) clamp(n int64) int64 {
	if n <= 0 {
		return 1
	}
	if n > l.capacity {
		return l.capacity
	}
	return n
}
