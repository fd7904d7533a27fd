package marketdata

import (
	"context"
	"fmt"
	"time"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/ta"
	"crypto-trading-engine/internal/types"
)

// SentimentSource supplies the sentiment slice of a snapshot. A failing
// source degrades to neutral sentiment, it never fails the snapshot.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (types.SentimentData, []types.NewsItem, error)
}

// Provider assembles AnalysisSnapshots from the candle API and the
// sentiment source.
type Provider struct {
	client      *Client
	cache       *candleCache
	sentiment   SentimentSource
	candleLimit int
}

func NewProvider(client *Client, sentiment SentimentSource, candleLimit int, cacheTTL time.Duration) *Provider {
	if candleLimit <= 0 {
		candleLimit = 250
	}
	return &Provider{
		client:      client,
		cache:       newCandleCache(cacheTTL),
		sentiment:   sentiment,
		candleLimit: candleLimit,
	}
}

const minCandles = 50

func (p *Provider) GetSnapshot(ctx context.Context, symbol string) (*types.AnalysisSnapshot, error) {
	candles, err := p.candles(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(candles) < minCandles {
		return nil, fmt.Errorf("%w: %d candles for %s, need %d", ErrDataUnavailable, len(candles), symbol, minCandles)
	}

	ticker, err := p.client.Ticker(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snap := &types.AnalysisSnapshot{
		Symbol: symbol,
		Market: types.MarketData{
			Symbol:    symbol,
			Price:     ticker.Price,
			Volume:    ticker.Volume,
			Change24h: ticker.Change24h,
			Timestamp: time.Now(),
		},
		Technicals: indicators(candles),
	}

	if p.sentiment != nil {
		sd, news, err := p.sentiment.Sentiment(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Sentiment unavailable, snapshot degrades to neutral", "symbol", symbol, "error", err)
		} else {
			snap.Sentiment = sd
			snap.News = news
		}
	}
	return snap, nil
}

func (p *Provider) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	ticker, err := p.client.Ticker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return ticker.Price, nil
}

func (p *Provider) candles(ctx context.Context, symbol string) ([]Candle, error) {
	if cached, ok := p.cache.get(symbol); ok {
		return cached, nil
	}
	candles, err := p.client.Candles(ctx, symbol, p.candleLimit)
	if err != nil {
		return nil, err
	}
	p.cache.set(symbol, candles)
	return candles, nil
}

func indicators(candles []Candle) types.TechnicalIndicators {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	ind := types.TechnicalIndicators{
		RSI:       ta.RSI(closes, 14),
		SMA20:     ta.SMA(closes, 20),
		SMA50:     ta.SMA(closes, 50),
		EMA12:     ta.EMA(closes, 12),
		EMA26:     ta.EMA(closes, 26),
		ATR:       ta.ATR(highs, lows, closes, 14),
		Timestamp: time.Now(),
	}
	ind.Bollinger.Middle, ind.Bollinger.Upper, ind.Bollinger.Lower = ta.Bollinger(closes, 20, 2.0)
	ind.MACD.Value, ind.MACD.Signal, ind.MACD.Histogram = ta.MACD(closes, 12, 26, 9)
	return ind
}
