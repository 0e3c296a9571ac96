package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Executor guards the calls made to one backend. Every operation name gets
// its own token bucket and circuit breaker. Transient failures are retried
// with capped exponential backoff inside a single breaker call, so a burst of
// retries counts once.
type Executor struct {
	cfg Config

	mu     sync.Mutex
	guards map[string]*guard
}

type guard struct {
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg.normalize(), guards: make(map[string]*guard)}
}

// Execute runs fn under the guard for operation. The policy of the first
// call for an operation decides what its breaker counts as a failure.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, policy Policy) error {
	if fn == nil {
		return errors.New("resilience: nil call")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}

	g := e.guardFor(op, policy)
	if g.breaker == nil {
		return e.run(ctx, op, g.limiter, fn, policy)
	}
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.run(ctx, op, g.limiter, fn, policy)
	})
	return err
}

func (e *Executor) run(ctx context.Context, op string, limiter *rate.Limiter, fn func(context.Context) error, policy Policy) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait %s: %w", op, err)
			}
		}

		err := fn(ctx)
		if err == nil || attempt >= e.cfg.RetryMaxAttempts || policy.Outcome(err) != Transient {
			return err
		}

		wait := e.cfg.backoff(attempt)
		slog.Warn("retry_attempt",
			"operation", op,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		if !pause(ctx, wait) {
			return err
		}
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) guardFor(op string, policy Policy) *guard {
	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.guards[op]; ok {
		return g
	}
	g := &guard{}
	if e.cfg.RateLimitPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(e.cfg.RateLimitPerSecond), e.cfg.RateLimitBurst)
	}
	if e.cfg.BreakerEnabled {
		g.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        op,
			MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
			Timeout:     e.cfg.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= e.cfg.BreakerMinRequests &&
					float64(counts.TotalFailures) >= e.cfg.BreakerFailureRatio*float64(counts.Requests)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || policy.Outcome(err) == Ignored
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			},
		})
	}
	e.guards[op] = g
	return g
}
