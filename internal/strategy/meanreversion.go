package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"crypto-trading-engine/internal/types"
)

// MeanReversion fades moves through the Bollinger bands when RSI confirms an
// extreme, targeting the middle band with an ATR-based stop.
type MeanReversion struct{}

func NewMeanReversion() *MeanReversion { return &MeanReversion{} }

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	ti := snap.Technicals
	price := snap.Market.Price
	if price <= 0 || math.IsNaN(ti.RSI) || math.IsNaN(ti.Bollinger.Lower) || math.IsNaN(ti.ATR) {
		return nil, nil
	}

	if price <= ti.Bollinger.Lower*1.01 && ti.RSI < 30 {
		confidence := clampConfidence(0.55 + (30-ti.RSI)/30*0.3)
		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionBuy,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Oversold reversion: price %.4f at lower band %.4f, RSI %.1f", price, ti.Bollinger.Lower, ti.RSI),
			EntryPrice:   price,
			TargetPrice:  ti.Bollinger.Middle,
			StopLoss:     price - 2*ti.ATR,
			PositionSize: 0.1,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	if price >= ti.Bollinger.Upper*0.99 && ti.RSI > 70 {
		confidence := clampConfidence(0.55 + (ti.RSI-70)/30*0.3)
		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionSell,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Overbought reversion: price %.4f at upper band %.4f, RSI %.1f", price, ti.Bollinger.Upper, ti.RSI),
			EntryPrice:   price,
			TargetPrice:  ti.Bollinger.Middle,
			StopLoss:     price + 2*ti.ATR,
			PositionSize: 0.1,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	return nil, nil
}
