package sentiment

import (
	"strings"
	"time"

	"crypto-trading-engine/internal/types"
)

// Analyzer scores articles with a weighted keyword lexicon and aggregates
// them into per-source and overall sentiment.
type Analyzer struct {
	positive map[string]float64
	negative map[string]float64
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positive: map[string]float64{
			"surge": 0.8, "rally": 0.8, "bullish": 0.9, "breakout": 0.7,
			"gain": 0.5, "soar": 0.8, "adoption": 0.6, "upgrade": 0.5,
			"partnership": 0.5, "record": 0.6, "growth": 0.5, "buy": 0.4,
			"institutional": 0.4, "approval": 0.7, "milestone": 0.5,
		},
		negative: map[string]float64{
			"crash": -0.9, "plunge": -0.8, "bearish": -0.9, "selloff": -0.8,
			"hack": -0.9, "exploit": -0.8, "lawsuit": -0.6, "ban": -0.7,
			"drop": -0.5, "dump": -0.7, "fraud": -0.9, "liquidation": -0.6,
			"delay": -0.4, "fear": -0.5, "warning": -0.4, "scam": -0.9,
		},
	}
}

// ScoreArticle returns a score in [-1, 1] for one article.
func (a *Analyzer) ScoreArticle(article Article) float64 {
	text := strings.ToLower(article.Title + " " + article.Content)
	score, hits := 0.0, 0
	for word, w := range a.positive {
		if strings.Contains(text, word) {
			score += w
			hits++
		}
	}
	for word, w := range a.negative {
		if strings.Contains(text, word) {
			score += w
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	score /= float64(hits)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// mentionsPerArticle approximates headline reach. The scraped article flow
// stands in for true social mention counts, which this adapter cannot see.
const mentionsPerArticle = 750

// Aggregate folds scored articles into SentimentData plus the scored news
// list for the snapshot.
func (a *Analyzer) Aggregate(articles []Article) (types.SentimentData, []types.NewsItem) {
	data := types.SentimentData{
		SourceScores: make(map[string]float64),
		Timestamp:    time.Now(),
	}
	if len(articles) == 0 {
		return data, nil
	}

	news := make([]types.NewsItem, 0, len(articles))
	sourceSums := make(map[string]float64)
	sourceCounts := make(map[string]int)
	total := 0.0

	for _, article := range articles {
		score := a.ScoreArticle(article)
		total += score
		sourceSums[article.Source] += score
		sourceCounts[article.Source]++
		news = append(news, types.NewsItem{
			Title:       article.Title,
			Source:      article.Source,
			URL:         article.URL,
			Score:       score,
			PublishedAt: article.PublishedAt,
		})
	}

	for source, sum := range sourceSums {
		data.SourceScores[source] = sum / float64(sourceCounts[source])
	}
	data.Score = total / float64(len(articles))
	data.MentionVolume = len(articles) * mentionsPerArticle
	return data, news
}
