package lockout

import (
	"context"
	"log/slog"
	"time"

	"escuela/pkg/platform/circuit"
)

// Fallback sends every call to the primary store and switches to the
// secondary once the breaker opens. Counters written to the secondary
// during an outage are not copied back when the primary recovers.
type Fallback struct {
	primary   Store
	secondary Store
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

type FallbackOption func(*Fallback)

func WithLogger(logger *slog.Logger) FallbackOption {
	return func(f *Fallback) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithBreaker(b *circuit.Breaker) FallbackOption {
	return func(f *Fallback) {
		if b != nil {
			f.breaker = b
		}
	}
}

func NewFallback(primary, secondary Store, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		primary:   primary,
		secondary: secondary,
		breaker:   circuit.New("lockout"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fallback) RecordAttempt(ctx context.Context, key string, window time.Duration) (int, error) {
	n, err := f.primary.RecordAttempt(ctx, key, window)
	if f.usePrimary(ctx, err) {
		return n, err
	}
	return f.secondary.RecordAttempt(ctx, key, window)
}

func (f *Fallback) Clear(ctx context.Context, key string) error {
	err := f.primary.Clear(ctx, key)
	// clear both so a counter written during an outage cannot resurface
	secondaryErr := f.secondary.Clear(ctx, key)
	if f.usePrimary(ctx, err) {
		return err
	}
	return secondaryErr
}

// usePrimary records the outcome of a primary call and reports whether its
// result should be returned. Before the breaker opens a primary error is
// returned as is.
func (f *Fallback) usePrimary(ctx context.Context, err error) bool {
	if err == nil {
		ok, change := f.breaker.RecordSuccess()
		if change.Closed {
			f.logger.InfoContext(ctx, "lockout store recovered", "breaker", f.breaker.Name())
		}
		return ok
	}
	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "lockout store degraded, using in-memory counters",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
	return !useFallback
}
