package limits

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimitPolicy определяет лимит "N запросов за окно W".
type RateLimitPolicy struct {
	Requests int           `json:"requests"`
	Per      time.Duration `json:"per"`
}

// DefaultRateLimitPolicy возвращает консервативный лимит по умолчанию.
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{Requests: 30, Per: time.Minute}
}

func (p RateLimitPolicy) validate() error {
	if p.Requests <= 0 {
		return fmt.Errorf("rate limit Requests must be positive, got %d", p.Requests)
	}
	if p.Per <= 0 {
		return fmt.Errorf("rate limit Per must be positive, got %s", p.Per)
	}
	return nil
}

// SlidingWindowLimiter — скользящее окно над FIFO временных меток допуска:
// запрос проходит, если за последние Per секунд было меньше Requests допусков,
// иначе ждет, пока самая старая метка не выйдет из окна.
//
// Турникет (канал емкости 1) выстраивает ожидающих в FIFO: очередь горутин
// на канале обслуживается рантаймом в порядке поступления, поэтому допуски
// честные. Отмена контекста прерывает ожидание и освобождает турникет.
type SlidingWindowLimiter struct {
	policy RateLimitPolicy

	turn chan struct{}

	mu     sync.Mutex
	window []time.Time
}

func NewSlidingWindowLimiter(policy RateLimitPolicy) (*SlidingWindowLimiter, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &SlidingWindowLimiter{
		policy: policy,
		turn:   make(chan struct{}, 1),
	}, nil
}

// Acquire блокирует до получения слота либо до отмены контекста.
func (l *SlidingWindowLimiter) Acquire(ctx context.Context) error {
	select {
	case l.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.turn }()

	for {
		l.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-l.policy.Per)

		drop := 0
		for drop < len(l.window) && !l.window[drop].After(cutoff) {
			drop++
		}
		if drop > 0 {
			l.window = append([]time.Time(nil), l.window[drop:]...)
		}

		if len(l.window) < l.policy.Requests {
			l.window = append(l.window, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.window[0].Sub(cutoff)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Pending возвращает число допусков в текущем окне (для диагностики).
func (l *SlidingWindowLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.policy.Per)
	n := 0
	for _, ts := range l.window {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
