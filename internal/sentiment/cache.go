package sentiment

import (
	"sync"
	"time"

	"crypto-trading-engine/internal/types"
)

type cached struct {
	data      types.SentimentData
	news      []types.NewsItem
	fetchedAt time.Time
}

// sentimentCache avoids re-scraping the same symbol within the TTL.
type sentimentCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cached
}

func newSentimentCache(ttl time.Duration) *sentimentCache {
	return &sentimentCache{
		ttl:     ttl,
		entries: make(map[string]cached),
	}
}

func (c *sentimentCache) get(symbol string) (types.SentimentData, []types.NewsItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || time.Since(e.fetchedAt) > c.ttl {
		return types.SentimentData{}, nil, false
	}
	return e.data, e.news, true
}

func (c *sentimentCache) set(symbol string, data types.SentimentData, news []types.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = cached{data: data, news: news, fetchedAt: time.Now()}
}
