package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache — потокобезопасный кэш "ключ → значение" с истечением.
// Чтение лениво отбрасывает протухшие записи, фоновая уборка (janitor)
// вычищает нетронутые. Значения хранятся по ссылке и не копируются.
type TTLCache struct {
	inner      *gocache.Cache
	defaultTTL time.Duration
}

// New создает кэш с TTL по умолчанию и периодом фоновой уборки.
func New(defaultTTL, sweepInterval time.Duration) *TTLCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}
	return &TTLCache{
		inner:      gocache.New(defaultTTL, sweepInterval),
		defaultTTL: defaultTTL,
	}
}

func (c *TTLCache) Get(key string) (any, bool) {
	return c.inner.Get(key)
}

// Set записывает значение с TTL по умолчанию.
func (c *TTLCache) Set(key string, value any) {
	c.inner.Set(key, value, gocache.DefaultExpiration)
}

// SetTTL записывает значение с индивидуальным TTL; ttl <= 0 означает
// значение без истечения.
func (c *TTLCache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.inner.Set(key, value, gocache.NoExpiration)
		return
	}
	c.inner.Set(key, value, ttl)
}

func (c *TTLCache) Delete(key string) {
	c.inner.Delete(key)
}

func (c *TTLCache) Clear() {
	c.inner.Flush()
}

// Len возвращает число живых записей (протухшие могут учитываться
// до ближайшей уборки).
func (c *TTLCache) Len() int {
	return c.inner.ItemCount()
}
