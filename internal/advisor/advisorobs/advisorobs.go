package advisorobs

import (
	"context"

	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/trace"
	"crypto-trading-engine/internal/types"
)

// observableAdvisor wraps an Advisor with observability (logging & tracing)
type observableAdvisor struct {
	advisor interfaces.Advisor
}

// Compile-time interface check
var _ interfaces.Advisor = (*observableAdvisor)(nil)

// Wrap wraps an advisor with observability middleware
func Wrap(advisor interfaces.Advisor) interfaces.Advisor {
	return &observableAdvisor{
		advisor: advisor,
	}
}

// Advise requests advisory signals with observability
func (oa *observableAdvisor) Advise(
	ctx context.Context,
	snapshot *types.AnalysisSnapshot,
	positions []types.Position,
	metrics types.RiskMetrics,
) ([]types.TradingSignal, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Advise")
	defer span.End()

	logger.Debug(ctx, "Requesting advisory signals",
		"symbol", snapshot.Symbol,
		"price", snapshot.Market.Price,
		"open_positions", len(positions),
	)

	signals, err := oa.advisor.Advise(ctx, snapshot, positions, metrics)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get advisory signals", err,
			"symbol", snapshot.Symbol,
		)
		return nil, err
	}

	// Use InfoSkip(1) to report the actual caller, not this middleware wrapper
	logger.InfoSkip(ctx, 1, "Advisory signals received",
		"symbol", snapshot.Symbol,
		"count", len(signals),
	)
	return signals, nil
}
