package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker placed in front of a Client.
type BreakerConfig struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxCall uint32
}

// DefaultBreakerConfig returns conservative defaults for batch extraction.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:     5,
		FailureRatio:    0.6,
		OpenTimeout:     30 * time.Second,
		HalfOpenMaxCall: 1,
	}
}

// BreakerClient wraps a Client so repeated upstream failures fail fast.
// Context cancellation is not counted as an upstream failure.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewBreakerClient wraps inner with a circuit breaker.
func NewBreakerClient(inner Client, cfg BreakerConfig, logger *zap.Logger) *BreakerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: cfg.HalfOpenMaxCall,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*Response](settings),
	}
}

// GenerateContent implements Client.
func (b *BreakerClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (*Response, error) {
	return b.breaker.Execute(func() (*Response, error) {
		return b.inner.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON implements Client.
func (b *BreakerClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (*Response, error) {
	return b.breaker.Execute(func() (*Response, error) {
		return b.inner.GenerateJSON(ctx, prompt, tier)
	})
}

// GetModel implements Client.
func (b *BreakerClient) GetModel(tier ModelTier) string {
	return b.inner.GetModel(tier)
}

// Close implements Client.
func (b *BreakerClient) Close() error {
	return b.inner.Close()
}

// IsCircuitOpen reports whether err was returned because the breaker rejected the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
