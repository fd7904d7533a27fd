package sentiment

import (
	"context"
	"fmt"
	"time"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/types"
)

// ServiceConfig controls scraping volume and cache lifetime.
type ServiceConfig struct {
	Enabled       bool
	MaxArticles   int
	CacheDuration time.Duration
	ScrapeTimeout time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Enabled:       true,
		MaxArticles:   15,
		CacheDuration: 1 * time.Hour,
		ScrapeTimeout: 10 * time.Second,
	}
}

// Service is the sentiment collaborator: it scrapes, scores, and caches
// sentiment per symbol.
type Service struct {
	cfg      ServiceConfig
	scraper  *Scraper
	analyzer *Analyzer
	cache    *sentimentCache
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		cfg:      cfg,
		scraper:  NewScraper(cfg.ScrapeTimeout),
		analyzer: NewAnalyzer(),
		cache:    newSentimentCache(cfg.CacheDuration),
	}
}

// Sentiment returns scored sentiment for a symbol, scraping at most once
// per cache period.
func (s *Service) Sentiment(ctx context.Context, symbol string) (types.SentimentData, []types.NewsItem, error) {
	if !s.cfg.Enabled {
		return types.SentimentData{Timestamp: time.Now()}, nil, nil
	}
	if data, news, ok := s.cache.get(symbol); ok {
		return data, news, nil
	}

	perSource := s.cfg.MaxArticles / 2
	if perSource < 1 {
		perSource = 1
	}
	articles := s.scraper.Scrape(ctx, symbol, perSource)
	if len(articles) == 0 {
		return types.SentimentData{}, nil, fmt.Errorf("no articles scraped for %s", symbol)
	}

	// Backfill missing summaries from the article pages; failures just
	// leave the title-only score.
	for i := range articles {
		if articles[i].Content != "" || articles[i].URL == "" {
			continue
		}
		body, err := s.scraper.FetchArticleBody(ctx, articles[i].URL)
		if err != nil {
			logger.Debug(ctx, "Article body fetch failed", "url", articles[i].URL, "error", err)
			continue
		}
		articles[i].Content = body
	}

	data, news := s.analyzer.Aggregate(articles)
	s.cache.set(symbol, data, news)
	return data, news, nil
}
