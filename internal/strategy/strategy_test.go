package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trading-engine/internal/types"
)

func bullishSnapshot(symbol string) *types.AnalysisSnapshot {
	return &types.AnalysisSnapshot{
		Symbol: symbol,
		Market: types.MarketData{
			Symbol:    symbol,
			Price:     105,
			Volume:    1_000_000,
			Change24h: 4.5,
			Timestamp: time.Now(),
		},
		Technicals: types.TechnicalIndicators{
			RSI:       62,
			MACD:      types.MACD{Value: 1.2, Signal: 0.8, Histogram: 0.4},
			SMA20:     102,
			SMA50:     98,
			EMA12:     104,
			EMA26:     100,
			Bollinger: types.Bollinger{Upper: 110, Middle: 102, Lower: 94},
			ATR:       1.5,
			Timestamp: time.Now(),
		},
		Sentiment: types.SentimentData{
			Score:         0.2,
			SourceScores:  map[string]float64{"news": 0.3, "social": 0.1},
			MentionVolume: 1200,
			Timestamp:     time.Now(),
		},
	}
}

func TestMomentumBuy(t *testing.T) {
	signals, err := NewMomentum().Analyze(context.Background(), bullishSnapshot("ETH/USDC"))
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, "ETH/USDC", sig.Symbol)
	assert.Greater(t, sig.Confidence, 0.5)
	assert.LessOrEqual(t, sig.Confidence, 0.95)
	assert.Equal(t, 0.1, sig.PositionSize)
	assert.Greater(t, sig.TargetPrice, sig.EntryPrice)
	assert.Less(t, sig.StopLoss, sig.EntryPrice)
}

func TestMomentumSellOnExhaustion(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Technicals.RSI = 76
	snap.Technicals.MACD.Histogram = -0.2
	snap.Market.Price = 100 // below SMA20

	signals, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ActionSell, signals[0].Action)
}

func TestMomentumNoSignalWhenFlat(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Market.Change24h = 0.5

	signals, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestMeanReversionBuyAtLowerBand(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Market.Price = 94.5
	snap.Technicals.RSI = 24
	snap.Technicals.Bollinger = types.Bollinger{Upper: 110, Middle: 102, Lower: 94}
	snap.Technicals.ATR = 2

	signals, err := NewMeanReversion().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, 102.0, sig.TargetPrice, "target is the middle band")
	assert.InDelta(t, 94.5-2*2, sig.StopLoss, 1e-9, "stop is price minus two ATR")
}

func TestMeanReversionSellAtUpperBand(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Market.Price = 110
	snap.Technicals.RSI = 78

	signals, err := NewMeanReversion().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ActionSell, signals[0].Action)
	assert.Equal(t, 102.0, signals[0].TargetPrice)
}

func TestSentimentBuyRequiresAgreementAndVolume(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Sentiment = types.SentimentData{
		Score:         0.75,
		SourceScores:  map[string]float64{"news": 0.8, "social": 0.7, "forums": -0.1},
		MentionVolume: 8000,
	}

	signals, err := NewSentiment().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ActionBuy, signals[0].Action)
	assert.Equal(t, 0.05, signals[0].PositionSize, "sentiment signals size smaller than technical ones")

	// Same score, not enough mentions.
	snap.Sentiment.MentionVolume = 100
	signals, err = NewSentiment().Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSentimentSellOnNegativeExtreme(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Sentiment = types.SentimentData{
		Score:         -0.8,
		SourceScores:  map[string]float64{"news": -0.9, "social": -0.7},
		MentionVolume: 9000,
	}

	signals, err := NewSentiment().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ActionSell, signals[0].Action)
}

func TestConsensusBoostsAgreement(t *testing.T) {
	// Bullish technicals plus strong sentiment: momentum and sentiment both
	// fire BUY, so consensus must merge them with a boosted confidence.
	snap := bullishSnapshot("ETH/USDC")
	snap.Sentiment = types.SentimentData{
		Score:         0.75,
		SourceScores:  map[string]float64{"news": 0.8, "social": 0.7},
		MentionVolume: 8000,
	}

	signals, err := NewConsensus().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, 0.15, sig.PositionSize)
	assert.Equal(t, "consensus", sig.Strategy)
	assert.LessOrEqual(t, sig.Confidence, 0.95)

	// Confidence is the member average boosted by 1.2.
	momentum, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	sentiment, err := NewSentiment().Analyze(context.Background(), snap)
	require.NoError(t, err)
	avg := (momentum[0].Confidence + sentiment[0].Confidence) / 2
	want := avg * 1.2
	if want > 0.95 {
		want = 0.95
	}
	assert.InDelta(t, want, sig.Confidence, 1e-9)
}

func TestConsensusDownweightsSingleView(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC") // only momentum fires

	momentum, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, momentum, 1)

	signals, err := NewConsensus().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.InDelta(t, momentum[0].Confidence*0.7, sig.Confidence, 1e-9)
	assert.InDelta(t, momentum[0].PositionSize*0.5, sig.PositionSize, 1e-9)
}

func TestVolatilityLeveragedSignal(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Technicals.ATR = 3 // ATR/price ~ 0.0286
	snap.Technicals.Bollinger = types.Bollinger{Upper: 112, Middle: 102, Lower: 92}

	signals, err := NewVolatility().Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, 5.0, sig.Leverage)
	assert.Equal(t, 0.05, sig.PositionSize)
	assert.InDelta(t, snap.Market.Price+3*snap.Technicals.ATR, sig.TargetPrice, 1e-9)
}

func TestVolatilityQuietMarketNoSignal(t *testing.T) {
	snap := bullishSnapshot("ETH/USDC")
	snap.Technicals.ATR = 0.2

	signals, err := NewVolatility().Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

type panickyStrategy struct{}

func (panickyStrategy) Name() string { return "panicky" }
func (panickyStrategy) Analyze(context.Context, *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	panic("boom")
}

func TestManagerIsolatesFailures(t *testing.T) {
	m := NewManager(panickyStrategy{}, NewMomentum())

	results := m.AnalyzeWithAllStrategies(context.Background(), bullishSnapshot("ETH/USDC"))

	_, ok := results["panicky"]
	assert.False(t, ok, "failed strategy must be omitted")
	require.Contains(t, results, "momentum")
	assert.Len(t, results["momentum"], 1)
}

func TestManagerRegistrationOrder(t *testing.T) {
	m := NewManager(NewMomentum(), NewMeanReversion(), NewSentiment())
	assert.Equal(t, []string{"momentum", "mean_reversion", "sentiment"}, m.Names())
}
