package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls int
	err   error
}

func (s *stubClient) GenerateContent(_ context.Context, _ string, _ ModelTier) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Text: "{}"}, nil
}

func (s *stubClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (*Response, error) {
	return s.GenerateContent(ctx, prompt, tier)
}

func (s *stubClient) GetModel(_ ModelTier) string { return "stub" }

func (s *stubClient) Close() error { return nil }

func TestBreakerClient_PassesThrough(t *testing.T) {
	inner := &stubClient{}
	client := NewBreakerClient(inner, DefaultBreakerConfig(), nil)

	resp, err := client.GenerateJSON(context.Background(), "p", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.Equal(t, "stub", client.GetModel(TierLite))
	assert.NoError(t, client.Close())
}

func TestBreakerClient_OpensAfterFailures(t *testing.T) {
	inner := &stubClient{err: errors.New("upstream down")}
	cfg := BreakerConfig{MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute, HalfOpenMaxCall: 1}
	client := NewBreakerClient(inner, cfg, nil)

	for i := 0; i < 2; i++ {
		_, err := client.GenerateContent(context.Background(), "p", TierAdvanced)
		require.Error(t, err)
		assert.False(t, IsCircuitOpen(err))
	}

	_, err := client.GenerateContent(context.Background(), "p", TierAdvanced)
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerClient_CancellationDoesNotTrip(t *testing.T) {
	inner := &stubClient{err: context.Canceled}
	cfg := BreakerConfig{MinRequests: 1, FailureRatio: 0.1, OpenTimeout: time.Minute, HalfOpenMaxCall: 1}
	client := NewBreakerClient(inner, cfg, nil)

	for i := 0; i < 3; i++ {
		_, err := client.GenerateContent(context.Background(), "p", TierAdvanced)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, inner.calls)
}
