package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"crypto-trading-engine/internal/types"
)

// Momentum trades trend continuation: RSI in the bullish band, positive MACD
// histogram, price stacked above both moving averages and a meaningful 24h
// move.
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	ti := snap.Technicals
	price := snap.Market.Price
	if price <= 0 || math.IsNaN(ti.RSI) || math.IsNaN(ti.SMA20) || math.IsNaN(ti.SMA50) || math.IsNaN(ti.MACD.Histogram) {
		return nil, nil
	}

	if ti.RSI > 50 && ti.RSI < 70 &&
		ti.MACD.Histogram > 0 &&
		price > ti.SMA20 && ti.SMA20 > ti.SMA50 &&
		snap.Market.Change24h > 2.0 {

		confidence := clampConfidence(0.5 +
			(ti.RSI-50)/50*0.2 +
			math.Min(snap.Market.Change24h/10.0, 1.0)*0.2 +
			0.05)

		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionBuy,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Bullish momentum: RSI %.1f, MACD histogram %.4f, price above SMA20/SMA50, 24h change %.2f%%", ti.RSI, ti.MACD.Histogram, snap.Market.Change24h),
			EntryPrice:   price,
			TargetPrice:  price * 1.05,
			StopLoss:     price * 0.97,
			PositionSize: 0.1,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	if ti.RSI > 70 && ti.MACD.Histogram < 0 && price < ti.SMA20 {
		confidence := clampConfidence(0.5 + (ti.RSI-70)/30*0.3 + 0.1)

		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionSell,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Momentum exhaustion: RSI %.1f overbought, MACD histogram turned negative, price below SMA20", ti.RSI),
			EntryPrice:   price,
			TargetPrice:  price * 0.95,
			StopLoss:     price * 1.03,
			PositionSize: 0.1,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	return nil, nil
}
