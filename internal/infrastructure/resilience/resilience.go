// Package resilience wraps outbound dependency calls with bounded retries
// and a circuit breaker. One Guard is built per dependency so breaker state
// is shared by all operations against that dependency.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict tells the Guard how to treat one failed call.
type Verdict struct {
	Retry               bool
	CountAgainstBreaker bool
}

// Classifier inspects an error from the wrapped call. A nil classifier
// treats every error as final and breaker-relevant.
type Classifier func(err error) Verdict

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:         3,
		InitialBackoff:      100 * time.Millisecond,
		MaxBackoff:          2 * time.Second,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerOpenFor:      20 * time.Second,
	}
}

type Guard struct {
	name     string
	cfg      Config
	classify Classifier
	breaker  *gobreaker.CircuitBreaker[any]
	logger   *slog.Logger
}

func NewGuard(name string, cfg Config, classify Classifier, logger *slog.Logger) *Guard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = DefaultConfig().BreakerMinRequests
	}
	if cfg.BreakerFailureRatio <= 0 || cfg.BreakerFailureRatio > 1 {
		cfg.BreakerFailureRatio = DefaultConfig().BreakerFailureRatio
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = DefaultConfig().BreakerOpenFor
	}
	if classify == nil {
		classify = func(error) Verdict { return Verdict{CountAgainstBreaker: true} }
	}

	g := &Guard{name: name, cfg: cfg, classify: classify, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !g.classify(err).CountAgainstBreaker
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change", "dependency", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// Do runs fn through the breaker with retries inside a single breaker
// admission, so a burst of retries counts as one request.
func (g *Guard) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("%s: nil operation", g.name)
	}
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.withRetries(ctx, operation, fn)
	})
	return err
}

func (g *Guard) withRetries(ctx context.Context, operation string, fn func(context.Context) error) error {
	backoff := g.cfg.InitialBackoff
	var err error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !g.classify(err).Retry || attempt == g.cfg.MaxAttempts {
			return err
		}

		g.logger.Warn("retrying operation",
			"dependency", g.name,
			"operation", operation,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
		if backoff > g.cfg.MaxBackoff {
			backoff = g.cfg.MaxBackoff
		}
	}
	return err
}

// Open reports whether err came from a breaker that refused the call.
func Open(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
