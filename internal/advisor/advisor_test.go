package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trading-engine/internal/types"
)

func testSnapshot() *types.AnalysisSnapshot {
	return &types.AnalysisSnapshot{
		Symbol: "BTC/USD",
		Market: types.MarketData{
			Symbol:    "BTC/USD",
			Price:     50000,
			Timestamp: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestNoopAdvisorReturnsNothing(t *testing.T) {
	a := NewNoopAdvisor()
	signals, err := a.Advise(context.Background(), testSnapshot(), nil, types.RiskMetrics{})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestParseSignalsValid(t *testing.T) {
	out := `{"signals":[{"symbol":"BTC/USD","action":"buy","confidence":0.72,"reason":"momentum building","target_price":52000,"stop_loss":49000,"position_size":0.08}]}`

	signals, err := parseSignals(out, testSnapshot())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.Equal(t, "BTC/USD", sig.Symbol)
	assert.Equal(t, 0.72, sig.Confidence)
	assert.Equal(t, 52000.0, sig.TargetPrice)
	assert.Equal(t, 50000.0, sig.EntryPrice)
	assert.Equal(t, 0.08, sig.PositionSize)
	assert.Equal(t, "advisor-openai", sig.Strategy)
	assert.NotEmpty(t, sig.ID)
}

func TestParseSignalsMarkdownFences(t *testing.T) {
	out := "```json\n" + `{"signals":[{"action":"SELL","confidence":0.6,"reason":"overbought"}]}` + "\n```"

	signals, err := parseSignals(out, testSnapshot())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ActionSell, signals[0].Action)
	// missing symbol falls back to the snapshot's
	assert.Equal(t, "BTC/USD", signals[0].Symbol)
	// missing size gets a conservative default
	assert.Equal(t, 0.05, signals[0].PositionSize)
}

func TestParseSignalsDropsInvalid(t *testing.T) {
	out := `{"signals":[
		{"action":"HOLD","confidence":0.9,"reason":"wait"},
		{"action":"LEVERAGE_UP","confidence":0.9,"reason":"nonsense"},
		{"action":"BUY","confidence":1.7,"reason":"overconfident"},
		{"action":"BUY","confidence":0.65,"reason":"kept"}
	]}`

	signals, err := parseSignals(out, testSnapshot())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "kept", signals[0].Reason)
}

func TestParseSignalsInvalidJSON(t *testing.T) {
	_, err := parseSignals("I think you should buy", testSnapshot())
	assert.Error(t, err)
}
