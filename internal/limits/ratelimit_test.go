package limits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlidingWindowLimiter_InvalidPolicy(t *testing.T) {
	_, err := NewSlidingWindowLimiter(RateLimitPolicy{Requests: 0, Per: time.Second})
	assert.Error(t, err)

	_, err = NewSlidingWindowLimiter(RateLimitPolicy{Requests: 5, Per: 0})
	assert.Error(t, err)
}

func TestSlidingWindowLimiter_AdmitsWithinWindow(t *testing.T) {
	limiter, err := NewSlidingWindowLimiter(RateLimitPolicy{Requests: 3, Per: time.Minute})
	require.NoError(t, err)

	started := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}

	// First Requests acquisitions must not block
	assert.Less(t, time.Since(started), 100*time.Millisecond)
	assert.Equal(t, 3, limiter.Pending())
}

func TestSlidingWindowLimiter_BlocksUntilWindowSlides(t *testing.T) {
	window := 300 * time.Millisecond
	limiter, err := NewSlidingWindowLimiter(RateLimitPolicy{Requests: 2, Per: window})
	require.NoError(t, err)

	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	started := time.Now()
	require.NoError(t, limiter.Acquire(context.Background()))

	// Third acquire waits for the oldest admission to age out
	assert.GreaterOrEqual(t, time.Since(started), window/2)
}

func TestSlidingWindowLimiter_AcquireRespectsCancellation(t *testing.T) {
	limiter, err := NewSlidingWindowLimiter(RateLimitPolicy{Requests: 1, Per: time.Hour})
	require.NoError(t, err)

	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Turnstile must be released after a cancelled wait
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	err = limiter.Acquire(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlidingWindowLimiter_Pending(t *testing.T) {
	limiter, err := NewSlidingWindowLimiter(RateLimitPolicy{Requests: 10, Per: 100 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, limiter.Acquire(context.Background()))
	assert.Equal(t, 1, limiter.Pending())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, limiter.Pending(), "aged admissions leave the window")
}
