package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"crypto-trading-engine/internal/types"
)

// Volatility takes leveraged positions when the market is moving hard enough
// to pay for the leverage: both relative ATR and Bollinger-band width must
// exceed their thresholds and the momentum direction must be unambiguous.
// Targets scale with volatility instead of a fixed percentage.
type Volatility struct {
	minATRRatio  float64 // ATR / price
	minBandWidth float64 // (upper - lower) / middle
	leverage     float64
}

func NewVolatility() *Volatility {
	return &Volatility{
		minATRRatio:  0.02,
		minBandWidth: 0.04,
		leverage:     5,
	}
}

func (s *Volatility) Name() string { return "volatility" }

func (s *Volatility) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	ti := snap.Technicals
	price := snap.Market.Price
	if price <= 0 || math.IsNaN(ti.ATR) || math.IsNaN(ti.Bollinger.Middle) || ti.Bollinger.Middle == 0 {
		return nil, nil
	}

	atrRatio := ti.ATR / price
	bandWidth := (ti.Bollinger.Upper - ti.Bollinger.Lower) / ti.Bollinger.Middle
	if atrRatio < s.minATRRatio || bandWidth < s.minBandWidth {
		return nil, nil
	}

	// Direction must be unambiguous: MACD histogram and the moving-average
	// stack have to point the same way.
	var action string
	switch {
	case ti.MACD.Histogram > 0 && price > ti.SMA20 && ti.SMA20 > ti.SMA50:
		action = types.ActionBuy
	case ti.MACD.Histogram < 0 && price < ti.SMA20 && ti.SMA20 < ti.SMA50:
		action = types.ActionSell
	default:
		return nil, nil
	}

	confidence := clampConfidence(0.55 + math.Min(atrRatio/s.minATRRatio-1, 1)*0.15 + math.Min(bandWidth/s.minBandWidth-1, 1)*0.1)

	// Target and stop scale with the measured volatility.
	target := price + 3*ti.ATR
	stop := price - 1.5*ti.ATR
	if action == types.ActionSell {
		target = price - 3*ti.ATR
		stop = price + 1.5*ti.ATR
	}

	return []types.TradingSignal{{
		ID:           newSignalID(s.Name()),
		Symbol:       snap.Symbol,
		Action:       action,
		Confidence:   confidence,
		Reason:       fmt.Sprintf("High volatility %s: ATR/price %.3f, band width %.3f, momentum aligned", action, atrRatio, bandWidth),
		EntryPrice:   price,
		TargetPrice:  target,
		StopLoss:     stop,
		PositionSize: 0.05,
		Leverage:     s.leverage,
		Strategy:     s.Name(),
		Timestamp:    time.Now(),
	}}, nil
}
