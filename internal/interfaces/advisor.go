package interfaces

import (
	"context"

	"crypto-trading-engine/internal/types"
)

// Advisor is an optional, non-deterministic signal source consulted once per
// cycle. Its output is arbitrated exactly like strategy output; its failure
// must never block the cycle.
type Advisor interface {
	Advise(ctx context.Context, snapshot *types.AnalysisSnapshot, positions []types.Position, metrics types.RiskMetrics) ([]types.TradingSignal, error)
}
