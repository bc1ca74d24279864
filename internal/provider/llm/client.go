package llm

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/pkg/circuitbreaker"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/metrics"
)

const serviceName = "text generation"

type Options struct {
	// Name labels metrics and the breaker, e.g. "gemini".
	Name             string
	Timeout          time.Duration
	MaxRetries       uint64
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
	Metrics          *metrics.Metrics
	Logger           zerolog.Logger
}

// Client wraps a TextGenerator with a deadline, retries and a circuit breaker.
// The deadline covers the whole call including retries.
type Client struct {
	gen        TextGenerator
	name       string
	timeout    time.Duration
	maxRetries uint64
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff
}

func NewClient(gen TextGenerator, opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "llm"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	m := opts.Metrics
	c := &Client{
		gen:        gen,
		name:       opts.Name,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		metrics:    m,
		logger:     opts.Logger,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	c.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:             opts.Name,
		FailureThreshold: opts.BreakerThreshold,
		Cooldown:         opts.BreakerCooldown,
		IsFailure:        countsAgainstBreaker,
		OnStateChange: func(name string, state float64) {
			m.BreakerState.WithLabelValues(name).Set(state)
			opts.Logger.Warn().Str("breaker", name).Float64("state", state).Msg("circuit breaker state changed")
		},
	})
	return c
}

// GenerateText implements TextGenerator.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var text string
	op := func() error {
		err := c.breaker.Execute(func() error {
			var genErr error
			text, genErr = c.gen.GenerateText(ctx, systemPrompt, userPrompt)
			return genErr
		})
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		c.logger.Debug().Err(err).Str("provider", c.name).Msg("text generation failed, retrying")
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx))
	c.metrics.GenerationLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		appErr := errors.FromUpstream(serviceName, err)
		c.metrics.UpstreamErrors.WithLabelValues(c.name, errors.CodeOf(appErr).String()).Inc()
		return "", appErr
	}
	return text, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if stderrors.Is(err, circuitbreaker.ErrOpen) || stderrors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false
	}
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// Client errors like a bad API key do not trip the breaker.
func countsAgainstBreaker(err error) bool {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.Temporary()
	}
	return !stderrors.Is(err, context.Canceled)
}
