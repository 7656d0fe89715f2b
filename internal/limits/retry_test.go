package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Jitter:      0,
	}
}

func TestRetryPolicy_Do_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastRetryPolicy(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_Do_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := fastRetryPolicy(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel, "the last error comes back as is")
	assert.Equal(t, 4, calls)
}

func TestRetryPolicy_Do_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("do not retry")
	calls := 0
	err := fastRetryPolicy(4).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Do_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Minute, MaxDelay: time.Minute}.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1, "cancelled context must not schedule more attempts")
}

func TestPermanent_NilStaysNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
