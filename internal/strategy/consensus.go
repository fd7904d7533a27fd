package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-trading-engine/internal/types"
)

// Consensus runs the momentum, mean-reversion, and sentiment strategies and
// reconciles their output per symbol: agreement between two or more of them
// produces one boosted signal with averaged levels, a lone signal survives
// down-weighted rather than discarded.
type Consensus struct {
	members []Strategy
}

func NewConsensus() *Consensus {
	return &Consensus{
		members: []Strategy{NewMomentum(), NewMeanReversion(), NewSentiment()},
	}
}

func (s *Consensus) Name() string { return "consensus" }

func (s *Consensus) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	var all []types.TradingSignal
	for _, m := range s.members {
		signals, err := m.Analyze(ctx, snap)
		if err != nil {
			// Member failures degrade to "no opinion" rather than killing
			// the whole consensus run.
			continue
		}
		all = append(all, signals...)
	}
	if len(all) == 0 {
		return nil, nil
	}

	bySymbol := make(map[string][]types.TradingSignal)
	for _, sig := range all {
		bySymbol[sig.Symbol] = append(bySymbol[sig.Symbol], sig)
	}

	var out []types.TradingSignal
	for symbol, signals := range bySymbol {
		buys, sells := splitByAction(signals)

		switch {
		case len(buys) >= 2 && len(buys) > len(sells):
			out = append(out, s.merge(symbol, types.ActionBuy, buys))
		case len(sells) >= 2 && len(sells) > len(buys):
			out = append(out, s.merge(symbol, types.ActionSell, sells))
		case len(signals) == 1:
			// A single-strategy view is kept but down-weighted.
			sig := signals[0]
			sig.ID = newSignalID(s.Name())
			sig.Confidence = clampConfidence(sig.Confidence * 0.7)
			sig.PositionSize = sig.PositionSize * 0.5
			sig.Reason = fmt.Sprintf("Single-strategy view (%s): %s", sig.Strategy, sig.Reason)
			sig.Strategy = s.Name()
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *Consensus) merge(symbol, action string, signals []types.TradingSignal) types.TradingSignal {
	var entry, target, stop, confSum float64
	names := make([]string, 0, len(signals))
	for _, sig := range signals {
		entry += sig.EntryPrice
		target += sig.TargetPrice
		stop += sig.StopLoss
		confSum += sig.Confidence
		names = append(names, sig.Strategy)
	}
	n := float64(len(signals))
	avgConf := confSum / n

	return types.TradingSignal{
		ID:           newSignalID(s.Name()),
		Symbol:       symbol,
		Action:       action,
		Confidence:   clampConfidence(avgConf * 1.2),
		Reason:       fmt.Sprintf("%d strategies agree on %s: %s", len(signals), action, strings.Join(names, ", ")),
		EntryPrice:   entry / n,
		TargetPrice:  target / n,
		StopLoss:     stop / n,
		PositionSize: 0.15,
		Strategy:     s.Name(),
		Timestamp:    time.Now(),
	}
}

func splitByAction(signals []types.TradingSignal) (buys, sells []types.TradingSignal) {
	for _, sig := range signals {
		switch sig.Action {
		case types.ActionBuy:
			buys = append(buys, sig)
		case types.ActionSell:
			sells = append(sells, sig)
		}
	}
	return
}
