package interfaces

import (
	"context"

	"crypto-trading-engine/internal/types"
)

// Engine is the orchestrator lifecycle and operator surface.
type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	ForceAnalysisCycle(ctx context.Context) error
	RiskMetrics() types.RiskMetrics
	Positions() []types.Position
	Trades() []types.Trade
}
