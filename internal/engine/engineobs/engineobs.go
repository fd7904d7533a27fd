package engineobs

import (
	"context"
	"time"

	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/trace"
	"crypto-trading-engine/internal/types"
)

// observableEngine wraps an Engine with observability (logging & tracing)
type observableEngine struct {
	engine interfaces.Engine
}

// Compile-time interface check
var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap wraps an engine with observability middleware
func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Start(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.Start")
	defer span.End()

	if err := oe.engine.Start(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Engine failed to start", err)
		return err
	}
	return nil
}

func (oe *observableEngine) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "engine.Stop")
	defer span.End()

	oe.engine.Stop(ctx)
}

// ForceAnalysisCycle runs a manual cycle with observability
func (oe *observableEngine) ForceAnalysisCycle(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.ForceAnalysisCycle")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting forced analysis cycle")

	if err := oe.engine.ForceAnalysisCycle(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Forced analysis cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	logger.InfoSkip(ctx, 1, "Forced analysis cycle completed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (oe *observableEngine) RiskMetrics() types.RiskMetrics {
	return oe.engine.RiskMetrics()
}

func (oe *observableEngine) Positions() []types.Position {
	return oe.engine.Positions()
}

func (oe *observableEngine) Trades() []types.Trade {
	return oe.engine.Trades()
}
