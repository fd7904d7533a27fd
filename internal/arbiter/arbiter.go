package arbiter

import (
	"fmt"
	"sort"
	"strings"

	"crypto-trading-engine/internal/types"
)

// Arbiter resolves the possibly conflicting signals produced for one symbol
// in one cycle into at most one directive. The distinguishing rule versus a
// plain averaging scheme: disagreement strictly suppresses action. HOLD is
// never emitted, only absence.
type Arbiter struct {
	minConfidence float64
}

func New(minConfidence float64) *Arbiter {
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	return &Arbiter{minConfidence: minConfidence}
}

// Combine merges strategy and advisory output. Advisory signals are treated
// identically to strategy signals; the isolation happens upstream.
func (a *Arbiter) Combine(strategySignals, advisorySignals []types.TradingSignal) []types.TradingSignal {
	bySymbol := make(map[string][]types.TradingSignal)
	var symbols []string
	add := func(sig types.TradingSignal) {
		if sig.Action == types.ActionHold {
			return
		}
		if sig.Confidence < a.minConfidence {
			return
		}
		if _, seen := bySymbol[sig.Symbol]; !seen {
			symbols = append(symbols, sig.Symbol)
		}
		bySymbol[sig.Symbol] = append(bySymbol[sig.Symbol], sig)
	}
	for _, sig := range strategySignals {
		add(sig)
	}
	for _, sig := range advisorySignals {
		add(sig)
	}

	// Symbols processed in first-seen order so the output is deterministic
	// for a given input sequence.
	var out []types.TradingSignal
	for _, symbol := range symbols {
		if sig, ok := a.resolve(symbol, bySymbol[symbol]); ok {
			out = append(out, sig)
		}
	}
	return out
}

func (a *Arbiter) resolve(symbol string, signals []types.TradingSignal) (types.TradingSignal, bool) {
	if len(signals) == 1 {
		// Exactly one high-confidence signal passes through unchanged.
		return signals[0], true
	}

	var buys, sells []types.TradingSignal
	for _, sig := range signals {
		if sig.Action == types.ActionBuy {
			buys = append(buys, sig)
		} else {
			sells = append(sells, sig)
		}
	}

	var agreeing []types.TradingSignal
	switch {
	case len(buys) > len(sells) && len(buys) >= 2:
		agreeing = buys
	case len(sells) > len(buys) && len(sells) >= 2:
		agreeing = sells
	default:
		// Evenly split or no majority: the symbol yields nothing this cycle.
		return types.TradingSignal{}, false
	}

	return a.consensus(symbol, agreeing), true
}

// consensus templates the merged signal on the highest-confidence member and
// boosts confidence by the average of all agreeing signals.
func (a *Arbiter) consensus(symbol string, agreeing []types.TradingSignal) types.TradingSignal {
	best := agreeing[0]
	confSum := 0.0
	sources := make([]string, 0, len(agreeing))
	for _, sig := range agreeing {
		confSum += sig.Confidence
		sources = append(sources, sig.Strategy)
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}
	sort.Strings(sources)

	boosted := confSum / float64(len(agreeing)) * 1.2
	if boosted > 0.95 {
		boosted = 0.95
	}

	// The merged signal derives everything, including its id, from its
	// members: identical input always yields an identical result.
	merged := best
	merged.ID = "arb-" + best.ID
	merged.Confidence = boosted
	merged.Reason = fmt.Sprintf("Consensus %s for %s from %d sources: %s", best.Action, symbol, len(agreeing), strings.Join(sources, ", "))
	return merged
}
