package ingest

// limiter.go caps how many ingestions run at once across all sessions.
//
// Ingestion holds the whole upload in memory while it parses, so parallel
// uploads multiply peak memory. A batch waits up to maxWait for a slot before
// failing with ErrTooManyIngestions.

import (
	"context"
	"errors"
	"time"
)

// ErrTooManyIngestions is returned when all slots are occupied and the wait
// timeout expires. Clients should retry after a short delay.
var ErrTooManyIngestions = errors.New("too many concurrent uploads, please try again later")

const (
	// DefaultMaxConcurrent is the default limit for parallel ingestions.
	DefaultMaxConcurrent = 5

	// DefaultMaxWaitTime is how long a batch waits for a slot.
	DefaultMaxWaitTime = 30 * time.Second
)

// Limiter bounds concurrent ingestions with a counting semaphore. The number
// of held slots is the number of running ingestions.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

// NewLimiter allows at most maxConcurrent simultaneous ingestions.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{slots: make(chan struct{}, maxConcurrent), maxWait: maxWait}
}

// Ingest runs ing.Ingest on b once a slot is free. The error is non-nil only
// when no slot could be taken; ingestion outcomes are in the Result.
func (l *Limiter) Ingest(ctx context.Context, ing *Ingester, b Batch) (Result, error) {
	if err := l.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer l.release()
	return ing.Ingest(ctx, b), nil
}

func (l *Limiter) acquire(ctx context.Context) error {
	wait := time.NewTimer(l.maxWait)
	defer wait.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wait.C:
		return ErrTooManyIngestions
	}
}

func (l *Limiter) release() {
	<-l.slots
}

// WaitForDrain blocks until all running ingestions complete or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for len(l.slots) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *Limiter) Status() LimiterStatus {
	active := len(l.slots)
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
