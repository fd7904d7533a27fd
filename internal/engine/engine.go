package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"crypto-trading-engine/internal/arbiter"
	"crypto-trading-engine/internal/eod"
	"crypto-trading-engine/internal/events"
	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/risk"
	"crypto-trading-engine/internal/store"
	"crypto-trading-engine/internal/strategy"
	"crypto-trading-engine/internal/tradelog"
	"crypto-trading-engine/internal/types"
)

// Consecutive snapshot failures for one symbol before a HEALTH event fires.
const healthFailureThreshold = 3

const logRetentionDays = 7

// Engine drives the three periodic loops: analysis cycle, position monitor,
// and daily reset. All ledger access goes through the risk manager; the
// loops never touch positions or trades directly.
type Engine struct {
	cfg        *store.Config
	provider   interfaces.SnapshotProvider
	advisor    interfaces.Advisor
	venue      interfaces.Venue
	strategies *strategy.Manager
	arb        *arbiter.Arbiter
	risk       *risk.Manager
	bus        *events.Bus

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	healthMu sync.Mutex
	failures map[string]int
}

var _ interfaces.Engine = (*Engine)(nil)

func New(
	cfg *store.Config,
	provider interfaces.SnapshotProvider,
	advisor interfaces.Advisor,
	venue interfaces.Venue,
	strategies *strategy.Manager,
	arb *arbiter.Arbiter,
	riskMgr *risk.Manager,
	bus *events.Bus,
) *Engine {
	return &Engine{
		cfg:        cfg,
		provider:   provider,
		advisor:    advisor,
		venue:      venue,
		strategies: strategies,
		arb:        arb,
		risk:       riskMgr,
		bus:        bus,
		failures:   make(map[string]int),
	}
}

// Start launches the loops. Starting a running engine logs and no-ops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		logger.Warn(ctx, "Engine already running, start ignored")
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.running = true

	e.wg.Add(3)
	go e.analysisLoop(loopCtx)
	go e.monitorLoop(loopCtx)
	go e.dailyResetLoop(loopCtx)

	logger.Info(ctx, "Engine started",
		"mode", e.cfg.Mode,
		"pairs", e.cfg.Pairs,
		"analysis_interval", e.cfg.AnalysisInterval().String(),
		"monitor_interval", e.cfg.MonitorInterval().String(),
	)
	return nil
}

// Stop cancels the loops and waits for them to drain. In-flight ledger
// mutations complete before Stop returns. Stopping a stopped engine logs
// and no-ops.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		logger.Warn(ctx, "Engine not running, stop ignored")
		return
	}
	e.running = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn(ctx, "Engine stop wait aborted", "error", ctx.Err())
		return
	}

	if path, err := eod.SummarizeToday(); err != nil {
		logger.ErrorWithErr(ctx, "End-of-day summary failed", err)
	} else if path != "" {
		logger.Info(ctx, "End-of-day summary written", "path", path)
	}
	logger.Info(ctx, "Engine stopped")
}

func (e *Engine) analysisLoop(ctx context.Context) {
	defer e.wg.Done()
	tick := time.NewTicker(e.cfg.AnalysisInterval())
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) monitorLoop(ctx context.Context) {
	defer e.wg.Done()
	tick := time.NewTicker(e.cfg.MonitorInterval())
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			e.monitorPositions(ctx)
		}
	}
}

func (e *Engine) dailyResetLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		timer := time.NewTimer(untilNextMidnightUTC(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			// Summarize the day that just ended before rebasing.
			if path, err := eod.SummarizeDay(time.Now().UTC().Add(-time.Minute)); err != nil {
				logger.ErrorWithErr(ctx, "End-of-day summary failed", err)
			} else if path != "" {
				logger.Info(ctx, "End-of-day summary written", "path", path)
			}
			if err := tradelog.CompressOlder(logRetentionDays); err != nil {
				logger.ErrorWithErr(ctx, "Trade log compression failed", err)
			}
			e.risk.ResetDaily(ctx)
		}
	}
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}

// ForceAnalysisCycle runs one analysis cycle on the caller's goroutine,
// through the same code path as the scheduled loop.
func (e *Engine) ForceAnalysisCycle(ctx context.Context) error {
	e.runCycle(ctx)
	return ctx.Err()
}

func (e *Engine) runCycle(ctx context.Context) {
	for _, symbol := range e.cfg.Pairs {
		e.cycleSymbol(ctx, symbol)
	}
}

// cycleSymbol runs one symbol through the full pipeline. A panic anywhere in
// the pipeline poisons this symbol's iteration only.
func (e *Engine) cycleSymbol(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Analysis cycle panicked", "symbol", symbol, "panic", r)
		}
	}()

	snap, err := e.provider.GetSnapshot(ctx, symbol)
	if err != nil {
		e.noteSnapshotFailure(ctx, symbol, err)
		return
	}
	e.clearSnapshotFailure(symbol)

	bySource := e.strategies.AnalyzeWithAllStrategies(ctx, snap)
	var strategySignals []types.TradingSignal
	for _, sigs := range bySource {
		strategySignals = append(strategySignals, sigs...)
	}

	// Advisory failure degrades to no advisory input, never aborts the cycle.
	advisory, err := e.advisor.Advise(ctx, snap, e.risk.Positions(), e.risk.CalculateRiskMetrics())
	if err != nil {
		logger.Warn(ctx, "Advisory source unavailable", "symbol", symbol, "error", err)
		advisory = nil
	}

	for _, sig := range e.arb.Combine(strategySignals, advisory) {
		e.handleSignal(ctx, sig)
	}
}

func (e *Engine) handleSignal(ctx context.Context, sig types.TradingSignal) {
	sigCopy := sig
	e.bus.Publish(events.Event{
		Kind:      events.KindSignal,
		Symbol:    sig.Symbol,
		Signal:    &sigCopy,
		Timestamp: time.Now(),
	})

	// An open position on the symbol routes around validation: an opposing
	// signal closes it (reducing exposure needs no capital checks), a
	// same-side signal is already expressed.
	if pos, ok := e.risk.OpenPositionFor(sig.Symbol); ok {
		if opposes(pos.Side, sig.Action) {
			price, err := e.provider.LatestPrice(ctx, sig.Symbol)
			if err != nil {
				price = sig.EntryPrice
			}
			trade, err := e.risk.ClosePosition(ctx, pos.ID, price, "Opposing signal: "+sig.Strategy)
			if err != nil {
				logger.ErrorWithErr(ctx, "Failed to close opposing position", err, "symbol", sig.Symbol, "position_id", pos.ID)
				return
			}
			_ = tradelog.AppendSignal(sig, true, "closed opposing position")
			e.recordTrade(trade)
		} else {
			logger.Debug(ctx, "Position already open on signal side", "symbol", sig.Symbol, "side", pos.Side)
		}
		return
	}

	res := e.risk.ValidateTrade(ctx, sig)
	if !res.IsValid {
		_ = tradelog.AppendSignal(sig, false, res.Reason)
		e.bus.Publish(events.Event{
			Kind:      events.KindRisk,
			Symbol:    sig.Symbol,
			Message:   res.Reason,
			Signal:    &sigCopy,
			Timestamp: time.Now(),
		})
		return
	}
	_ = tradelog.AppendSignal(*res.AdjustedSignal, true, "validated")
	e.dispatch(ctx, *res.AdjustedSignal)
}

// dispatch executes one validated signal on the venue and materializes the
// position from the fill.
func (e *Engine) dispatch(ctx context.Context, sig types.TradingSignal) {
	leverage := sig.Leverage
	if leverage < 1 {
		leverage = 1
	}
	notional := sig.PositionSize * e.risk.PortfolioValue() * leverage
	if notional <= 0 {
		logger.Debug(ctx, "Zero-notional signal dropped", "symbol", sig.Symbol)
		return
	}

	fill, err := e.venue.SubmitOrder(ctx, types.OrderRequest{
		Symbol:   sig.Symbol,
		Side:     sig.Action,
		Size:     notional,
		Price:    sig.EntryPrice,
		Leverage: leverage,
		Tag:      sig.Strategy,
	})
	if err != nil {
		// Execution failures drop the signal; no position, no retry.
		logger.ErrorWithErr(ctx, "Order execution failed", err, "symbol", sig.Symbol, "notional", notional)
		e.bus.Publish(events.Event{
			Kind:      events.KindRisk,
			Symbol:    sig.Symbol,
			Message:   "execution failed: " + err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	pos := e.risk.AddPosition(ctx, sig, fill.FilledPrice, fill.FilledQuantity)
	e.bus.Publish(events.Event{
		Kind:      events.KindTrade,
		Symbol:    sig.Symbol,
		Message:   "position opened",
		Position:  pos,
		Timestamp: time.Now(),
	})
}

func opposes(side, action string) bool {
	return (side == types.SideLong && action == types.ActionSell) ||
		(side == types.SideShort && action == types.ActionBuy)
}

func (e *Engine) monitorPositions(ctx context.Context) {
	for _, pos := range e.risk.Positions() {
		price, err := e.provider.LatestPrice(ctx, pos.Symbol)
		if err != nil {
			logger.Warn(ctx, "Price fetch failed during monitoring", "symbol", pos.Symbol, "error", err)
			continue
		}
		trade, err := e.risk.UpdatePosition(ctx, pos.ID, price)
		if err != nil {
			// Position may have closed between the list and the update.
			if errors.Is(err, risk.ErrPositionNotFound) {
				continue
			}
			logger.ErrorWithErr(ctx, "Position update failed", err, "position_id", pos.ID)
			continue
		}
		if trade != nil {
			e.recordTrade(trade)
		}
	}
}

func (e *Engine) recordTrade(trade *types.Trade) {
	if err := tradelog.AppendTrade(*trade); err != nil {
		logger.Warn(context.Background(), "Trade log append failed", "trade_id", trade.ID, "error", err)
	}
	e.bus.Publish(events.Event{
		Kind:      events.KindTrade,
		Symbol:    trade.Symbol,
		Trade:     trade,
		Timestamp: time.Now(),
	})
}

func (e *Engine) noteSnapshotFailure(ctx context.Context, symbol string, err error) {
	e.healthMu.Lock()
	e.failures[symbol]++
	count := e.failures[symbol]
	e.healthMu.Unlock()

	logger.Warn(ctx, "Snapshot unavailable, symbol skipped", "symbol", symbol, "consecutive_failures", count, "error", err)
	if count == healthFailureThreshold {
		e.bus.Publish(events.Event{
			Kind:      events.KindHealth,
			Symbol:    symbol,
			Message:   "degraded: consecutive snapshot failures",
			Timestamp: time.Now(),
		})
	}
}

func (e *Engine) clearSnapshotFailure(symbol string) {
	e.healthMu.Lock()
	delete(e.failures, symbol)
	e.healthMu.Unlock()
}

// RiskMetrics returns the current portfolio metrics.
func (e *Engine) RiskMetrics() types.RiskMetrics {
	return e.risk.CalculateRiskMetrics()
}

// Positions returns the open positions.
func (e *Engine) Positions() []types.Position {
	return e.risk.Positions()
}

// Trades returns the trade ledger.
func (e *Engine) Trades() []types.Trade {
	return e.risk.Trades()
}
