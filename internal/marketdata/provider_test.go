package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-trading-engine/internal/types"
)

func testServer(t *testing.T, candleCount *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/candles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if candleCount != nil {
			*candleCount++
		}
		candles := make([]Candle, 100)
		for i := range candles {
			price := 100 + float64(i)*0.5
			candles[i] = Candle{
				Ts:     time.Now().Add(-time.Duration(100-i) * time.Minute).Unix(),
				Open:   price - 0.2,
				High:   price + 1,
				Low:    price - 1,
				Close:  price,
				Volume: 1000,
			}
		}
		_ = json.NewEncoder(w).Encode(candles)
	})
	mux.HandleFunc("/api/v1/ticker", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Ticker{
			Symbol:    r.URL.Query().Get("symbol"),
			Price:     150,
			Volume:    2_000_000,
			Change24h: 3.2,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type staticSentiment struct{}

func (staticSentiment) Sentiment(ctx context.Context, symbol string) (types.SentimentData, []types.NewsItem, error) {
	return types.SentimentData{Score: 0.4, MentionVolume: 3000}, nil, nil
}

type failingSentiment struct{}

func (failingSentiment) Sentiment(ctx context.Context, symbol string) (types.SentimentData, []types.NewsItem, error) {
	return types.SentimentData{}, nil, fmt.Errorf("scrape blocked")
}

func TestGetSnapshot(t *testing.T) {
	srv := testServer(t, nil)
	p := NewProvider(NewClient(srv.URL, 5*time.Second), staticSentiment{}, 100, time.Minute)

	snap, err := p.GetSnapshot(context.Background(), "ETH/USDC")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}

	if snap.Market.Price != 150 {
		t.Errorf("price = %f, want 150", snap.Market.Price)
	}
	if math.IsNaN(snap.Technicals.RSI) || math.IsNaN(snap.Technicals.SMA50) {
		t.Error("indicators should be computable from 100 candles")
	}
	if snap.Technicals.SMA20 <= snap.Technicals.SMA50 {
		t.Error("uptrending closes should have SMA20 above SMA50")
	}
	if snap.Sentiment.Score != 0.4 {
		t.Errorf("sentiment score = %f, want 0.4", snap.Sentiment.Score)
	}
}

func TestSnapshotSurvivesSentimentFailure(t *testing.T) {
	srv := testServer(t, nil)
	p := NewProvider(NewClient(srv.URL, 5*time.Second), failingSentiment{}, 100, time.Minute)

	snap, err := p.GetSnapshot(context.Background(), "ETH/USDC")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Sentiment.Score != 0 {
		t.Errorf("sentiment should degrade to neutral, got %f", snap.Sentiment.Score)
	}
}

func TestCandleCacheAvoidsRefetch(t *testing.T) {
	count := 0
	srv := testServer(t, &count)
	p := NewProvider(NewClient(srv.URL, 5*time.Second), nil, 100, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := p.GetSnapshot(context.Background(), "ETH/USDC"); err != nil {
			t.Fatalf("GetSnapshot: %v", err)
		}
	}
	if count != 1 {
		t.Errorf("candles fetched %d times, want 1 (cached)", count)
	}
}

func TestLatestPrice(t *testing.T) {
	srv := testServer(t, nil)
	p := NewProvider(NewClient(srv.URL, 5*time.Second), nil, 100, time.Minute)

	price, err := p.LatestPrice(context.Background(), "ETH/USDC")
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if price != 150 {
		t.Errorf("price = %f, want 150", price)
	}
}

func TestSnapshotFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(NewClient(srv.URL, 2*time.Second), nil, 100, time.Minute)
	if _, err := p.GetSnapshot(context.Background(), "ETH/USDC"); err == nil {
		t.Fatal("expected error from failing data API")
	}
}
