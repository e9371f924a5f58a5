package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default retry policy.
const (
	DefaultAttempts = 2
	DefaultBackoff  = 350 * time.Millisecond
)

// linearBackOff waits attempt*base before each retry.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// RetryOption configures a Retrier.
type RetryOption func(*Retrier)

// WithAttempts sets the number of retries after the first try.
// Negative values are treated as zero.
func WithAttempts(n int) RetryOption {
	return func(r *Retrier) {
		r.attempts = max(n, 0)
	}
}

// WithBackoff sets the base delay; the nth retry waits n*base.
func WithBackoff(base time.Duration) RetryOption {
	return func(r *Retrier) {
		r.base = base
	}
}

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *Retrier) {
		r.logger = logger
	}
}

// Retrier fetches through a Transport, retrying failures with a linearly
// increasing delay. It implements Transport.
type Retrier struct {
	transport Transport
	attempts  int
	base      time.Duration
	logger    *slog.Logger
}

// NewRetrier wraps t with the default policy adjusted by opts.
func NewRetrier(t Transport, opts ...RetryOption) *Retrier {
	r := &Retrier{
		transport: t,
		attempts:  DefaultAttempts,
		base:      DefaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Attempts returns the configured retry count. At most Attempts()+1 tries
// are made per fetch.
func (r *Retrier) Attempts() int {
	return r.attempts
}

// Fetch fetches url, retrying on failure. Once retries are exhausted the
// last error is returned wrapped in ErrTransport. Context cancellation ends
// retrying immediately and returns the context's error.
func (r *Retrier) Fetch(ctx context.Context, url string) ([]byte, error) {
	tries := 0
	op := func() ([]byte, error) {
		tries++
		data, err := r.transport.Fetch(ctx, url)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return data, err
	}
	notify := func(err error, wait time.Duration) {
		r.log().Warn("fetch failed, retrying",
			"url", url,
			"attempt", tries,
			"wait", wait,
			"error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: r.base}, uint64(r.attempts)), //nolint:gosec // attempts is non-negative
		ctx,
	)
	data, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransport, url, tries, err)
	}
	return data, nil
}
