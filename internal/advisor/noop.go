package advisor

import (
	"context"
	"fmt"
	"sync/atomic"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/types"
)

// NoopAdvisor is the fallback when no advisory provider is configured. It
// never proposes anything, so arbitration sees strategy signals only.
type NoopAdvisor struct{}

func NewNoopAdvisor() *NoopAdvisor {
	return &NoopAdvisor{}
}

func (a *NoopAdvisor) Advise(ctx context.Context, snapshot *types.AnalysisSnapshot, positions []types.Position, metrics types.RiskMetrics) ([]types.TradingSignal, error) {
	logger.Debug(ctx, "Noop advisor called", "symbol", snapshot.Symbol)
	return nil, nil
}

var advisorySignalCounter atomic.Uint64

func newAdvisorySignalID() string {
	return fmt.Sprintf("adv-%d", advisorySignalCounter.Add(1))
}
