package sentiment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"crypto-trading-engine/internal/logger"
)

// Article is one scraped news item before scoring.
type Article struct {
	Title       string
	Content     string
	Source      string
	URL         string
	PublishedAt time.Time
}

// Source defines one news site to scrape.
type Source struct {
	Name       string
	BaseURL    string
	SearchPath string // contains {symbol}
	Selectors  ArticleSelectors
	Weight     float64 // contribution to the aggregate score
}

// ArticleSelectors are the CSS selectors for extracting article data.
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Content          string
}

// Scraper collects recent articles about a symbol from the configured
// sources.
type Scraper struct {
	sources []Source
	timeout time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		sources: defaultSources(),
		timeout: timeout,
	}
}

func defaultSources() []Source {
	return []Source{
		{
			Name:       "CoinDesk",
			BaseURL:    "https://www.coindesk.com",
			SearchPath: "/search?s={symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.article-card",
				Title:            "h6 a, h5 a",
				URL:              "h6 a, h5 a",
				Content:          "p.description",
			},
			Weight: 1.0,
		},
		{
			Name:       "CoinTelegraph",
			BaseURL:    "https://cointelegraph.com",
			SearchPath: "/search?query={symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "article",
				Title:            "span.post-card__title",
				URL:              "a.post-card__figure-link",
				Content:          "p.post-card__text",
			},
			Weight: 0.8,
		},
	}
}

// Scrape fetches articles for a symbol from every source. Per-source
// failures are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, symbol string, maxPerSource int) []Article {
	var all []Article
	asset := baseAsset(symbol)

	for _, src := range s.sources {
		articles, err := s.scrapeSource(ctx, src, asset, maxPerSource)
		if err != nil {
			logger.Warn(ctx, "News source scrape failed", "source", src.Name, "symbol", symbol, "error", err)
			continue
		}
		all = append(all, articles...)
	}
	return all
}

func (s *Scraper) scrapeSource(ctx context.Context, src Source, asset string, limit int) ([]Article, error) {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (compatible; trading-engine/1.0)"),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	var articles []Article
	c.OnHTML(src.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}
		title := strings.TrimSpace(e.ChildText(src.Selectors.Title))
		if title == "" {
			return
		}
		articles = append(articles, Article{
			Title:       title,
			Content:     strings.TrimSpace(e.ChildText(src.Selectors.Content)),
			Source:      src.Name,
			URL:         e.Request.AbsoluteURL(e.ChildAttr(src.Selectors.URL, "href")),
			PublishedAt: time.Now(),
		})
	})

	url := src.BaseURL + strings.ReplaceAll(src.SearchPath, "{symbol}", asset)
	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()
	return articles, nil
}

// FetchArticleBody downloads an article page and extracts its paragraph
// text. Used when the listing page carried no usable summary.
func (s *Scraper) FetchArticleBody(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: s.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	doc.Find("article p").Each(func(_ int, sel *goquery.Selection) {
		if sb.Len() > 2000 {
			return
		}
		sb.WriteString(strings.TrimSpace(sel.Text()))
		sb.WriteString(" ")
	})
	return strings.TrimSpace(sb.String()), nil
}

func baseAsset(symbol string) string {
	if i := strings.IndexAny(symbol, "/-"); i > 0 {
		return symbol[:i]
	}
	return symbol
}
