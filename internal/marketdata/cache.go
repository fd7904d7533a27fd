package marketdata

import (
	"sync"
	"time"
)

// candleCache keeps recent candle series per symbol so the analysis cycle
// and the position monitor do not hammer the data API for the same bars.
type candleCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	candles   []Candle
	fetchedAt time.Time
}

func newCandleCache(ttl time.Duration) *candleCache {
	return &candleCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *candleCache) get(symbol string) ([]Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || time.Since(e.fetchedAt) > c.ttl {
		return nil, false
	}
	return e.candles, true
}

func (c *candleCache) set(symbol string, candles []Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = cacheEntry{candles: candles, fetchedAt: time.Now()}
}
