package inventory

import (
	"context"
	"time"

	"github.com/talkincode/thriftmart/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 20 * time.Millisecond
)

// Engine applies catalog and order mutations. Every operation runs in one
// transaction of the injected unit of work and either commits completely or
// leaves no trace.
type Engine struct {
	uow        store.UnitOfWork
	clock      Clock
	maxRetries int
	backoff    time.Duration
}

type Option func(*Engine)

// WithClock overrides the time source for order and process dates.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMaxRetries sets how many times a conflicting transaction is retried.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between retries; attempt n waits n*d.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.backoff = d
		}
	}
}

func NewEngine(uow store.UnitOfWork, opts ...Option) *Engine {
	e := &Engine{
		uow:        uow,
		clock:      systemClock{},
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run executes fn in a transaction, retrying transient conflicts. fn must
// reset any captured results at its start since it may run more than once.
func (e *Engine) run(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := e.uow.Do(ctx, fn)
		if err == nil || !store.IsTransient(err) {
			return err
		}
		if attempt >= e.maxRetries {
			zap.L().Warn("transaction conflict, giving up",
				zap.String("namespace", "inventory"),
				zap.String("op", op),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return &Error{Code: CodeConflict, Message: op + " conflicted with a concurrent update", Err: err}
		}
		zap.L().Debug("transaction conflict, retrying",
			zap.String("namespace", "inventory"),
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		timer := time.NewTimer(e.backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}
