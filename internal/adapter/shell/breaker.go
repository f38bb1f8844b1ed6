package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"goose-tools/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 3
	defaultBreakerCooldown    time.Duration = 30 * time.Second
)

// BreakerConfig configures BreakerBackend.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive launch failures before the circuit opens.
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before one probe is let through.
	Cooldown time.Duration
}

type output struct {
	stdout, stderr string
}

// BreakerBackend wraps a Backend with circuit breaker protection. Only
// failures where the program did not run to an exit status count: a missing
// binary or a hung daemon trips the circuit, a non-zero exit does not.
// While open, errors also wrap the last launch failure, so IsNotFound keeps
// reporting a missing binary.
type BreakerBackend struct {
	inner   Backend
	breaker *gobreaker.CircuitBreaker[output]

	mu      sync.Mutex
	lastErr error
}

// NewBreakerBackend wraps inner. Zero config fields use defaults.
func NewBreakerBackend(inner Backend, cfg BreakerConfig, logger *slog.Logger) *BreakerBackend {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = defaultBreakerCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[output](gobreaker.Settings{
		Name:        "shell:" + inner.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: launched,
	})
	return &BreakerBackend{inner: inner, breaker: cb}
}

// launched reports whether err still means the program ran. Caller
// cancellation is not the program's fault.
func launched(err error) bool {
	return err == nil || ExitCode(err) >= 0 || errors.Is(err, context.Canceled)
}

func (b *BreakerBackend) Name() string { return b.inner.Name() }

func (b *BreakerBackend) Execute(ctx context.Context, command string, args []string, workDir string) (string, string, error) {
	var (
		out    output
		runErr error
	)
	_, err := b.breaker.Execute(func() (output, error) {
		out.stdout, out.stderr, runErr = b.inner.Execute(ctx, command, args, workDir)
		if runErr != nil && errors.Is(ctx.Err(), context.Canceled) {
			return out, context.Canceled
		}
		if !launched(runErr) {
			b.mu.Lock()
			b.lastErr = runErr
			b.mu.Unlock()
		}
		return out, runErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.mu.Lock()
		last := b.lastErr
		b.mu.Unlock()
		if last != nil {
			return "", "", fmt.Errorf("%s circuit open: %w: %w: %w", command, domain.ErrDeviceUnavailable, err, last)
		}
		return "", "", fmt.Errorf("%s circuit open: %w: %w", command, domain.ErrDeviceUnavailable, err)
	}
	return out.stdout, out.stderr, runErr
}

// State returns the current circuit state.
func (b *BreakerBackend) State() gobreaker.State { return b.breaker.State() }
