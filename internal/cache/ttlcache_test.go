package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New(time.Minute, time.Minute)

	c.Set("k", 42)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New(time.Minute, time.Minute)

	c.SetTTL("short", "v", 30*time.Millisecond)

	_, ok := c.Get("short")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok, "entry must expire after its TTL")
}

func TestTTLCache_NonPositiveTTLNeverExpires(t *testing.T) {
	c := New(20*time.Millisecond, time.Minute)

	c.SetTTL("pinned", "v", 0)

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get("pinned")
	assert.True(t, ok)
}

func TestTTLCache_DeleteAndClear(t *testing.T) {
	c := New(time.Minute, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
