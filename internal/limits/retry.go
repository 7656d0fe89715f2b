package limits

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy — ограниченный экспоненциальный backoff с джиттером.
// Задержка перед попыткой k (k >= 2):
//
//	min(MaxDelay, BaseDelay * 2^(k-2)) * (1 + U[-Jitter, +Jitter])
//
// Любая ошибка повторяется, пока не исчерпаны MaxAttempts; последняя
// ошибка возвращается как есть.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

// Do выполняет fn с повторами. Вызывающий помещает захват rate-limit слота
// внутрь fn: каждая попытка проходит лимитер заново.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	schedule := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.Retry(func() error { return fn(ctx) }, schedule)
}

// Permanent помечает ошибку как неповторяемую внутри Do.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
