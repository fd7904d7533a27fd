package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trading-engine/internal/arbiter"
	"crypto-trading-engine/internal/events"
	"crypto-trading-engine/internal/risk"
	"crypto-trading-engine/internal/store"
	"crypto-trading-engine/internal/strategy"
	"crypto-trading-engine/internal/types"
)

type fakeProvider struct {
	snapshot *types.AnalysisSnapshot
	err      error
	price    float64
	priceErr error
}

func (f *fakeProvider) GetSnapshot(ctx context.Context, symbol string) (*types.AnalysisSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeProvider) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

type fakeAdvisor struct {
	signals []types.TradingSignal
	err     error
	calls   int
}

func (f *fakeAdvisor) Advise(ctx context.Context, snapshot *types.AnalysisSnapshot, positions []types.Position, metrics types.RiskMetrics) ([]types.TradingSignal, error) {
	f.calls++
	return f.signals, f.err
}

type fakeVenue struct {
	mu     sync.Mutex
	orders []types.OrderRequest
	err    error
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderFill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, req)
	return &types.OrderFill{
		OrderID:        "fill-1",
		FilledPrice:    req.Price,
		FilledQuantity: req.Size / req.Price,
	}, nil
}

func (f *fakeVenue) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type stubStrategy struct {
	name    string
	signals []types.TradingSignal
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	return s.signals, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureSink) Consume(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) byKind(kind string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Mode = "PAPER"
	cfg.Pairs = []string{"ETH/USDC"}
	cfg.Intervals.AnalysisSeconds = 300
	cfg.Intervals.MonitorSeconds = 10
	cfg.Risk.InitialCapital = 10000
	cfg.Risk.MaxPositionSize = 0.25
	cfg.Risk.MaxDailyLoss = 0.1
	cfg.Risk.MaxOpenPositions = 5
	cfg.Risk.StopLossPct = 0.05
	cfg.Risk.TakeProfitPct = 0.10
	cfg.Risk.SizingMethod = risk.SizingFixed
	cfg.Arbiter.MinConfidence = 0.6
	return cfg
}

func buySignal(id string, conf float64) types.TradingSignal {
	return types.TradingSignal{
		ID:         id,
		Symbol:     "ETH/USDC",
		Action:     types.ActionBuy,
		Confidence: conf,
		Reason:     "test",
		EntryPrice: 2000,
		Strategy:   "stub-" + id,
		Timestamp:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func newTestEngine(t *testing.T, cfg *store.Config, provider *fakeProvider, adv *fakeAdvisor, ven *fakeVenue, strategies ...strategy.Strategy) (*Engine, *risk.Manager, *captureSink) {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	riskMgr := risk.NewManager(risk.Config{
		InitialCapital:   cfg.Risk.InitialCapital,
		MaxPositionSize:  cfg.Risk.MaxPositionSize,
		MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
		StopLossPct:      cfg.Risk.StopLossPct,
		TakeProfitPct:    cfg.Risk.TakeProfitPct,
		SizingMethod:     cfg.Risk.SizingMethod,
	})
	sink := &captureSink{}
	bus := events.NewBus(64, sink)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	eng := New(cfg, provider, adv, ven, strategy.NewManager(strategies...), arbiter.New(cfg.Arbiter.MinConfidence), riskMgr, bus)
	return eng, riskMgr, sink
}

func TestForceAnalysisCycleOpensPosition(t *testing.T) {
	provider := &fakeProvider{
		snapshot: &types.AnalysisSnapshot{Symbol: "ETH/USDC", Market: types.MarketData{Symbol: "ETH/USDC", Price: 2000}},
		price:    2000,
	}
	ven := &fakeVenue{}
	eng, riskMgr, _ := newTestEngine(t, testConfig(), provider, &fakeAdvisor{}, ven,
		&stubStrategy{name: "s1", signals: []types.TradingSignal{buySignal("s1", 0.8)}},
		&stubStrategy{name: "s2", signals: []types.TradingSignal{buySignal("s2", 0.65)}},
		&stubStrategy{name: "s3", signals: []types.TradingSignal{buySignal("s3", 0.9)}},
	)

	require.NoError(t, eng.ForceAnalysisCycle(context.Background()))

	require.Equal(t, 1, ven.orderCount())
	positions := riskMgr.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, "ETH/USDC", positions[0].Symbol)
	assert.Equal(t, types.SideLong, positions[0].Side)
	assert.Equal(t, 2000.0, positions[0].EntryPrice)
	// fixed sizing: 25% of 10000 at 2000 = 1.25 units
	assert.InDelta(t, 1.25, positions[0].Quantity, 1e-9)
}

func TestAdvisorFailureDoesNotAbortCycle(t *testing.T) {
	provider := &fakeProvider{
		snapshot: &types.AnalysisSnapshot{Symbol: "ETH/USDC", Market: types.MarketData{Price: 2000}},
		price:    2000,
	}
	adv := &fakeAdvisor{err: errors.New("api down")}
	ven := &fakeVenue{}
	eng, riskMgr, _ := newTestEngine(t, testConfig(), provider, adv, ven,
		&stubStrategy{name: "s1", signals: []types.TradingSignal{buySignal("s1", 0.8)}},
		&stubStrategy{name: "s2", signals: []types.TradingSignal{buySignal("s2", 0.7)}},
	)

	require.NoError(t, eng.ForceAnalysisCycle(context.Background()))

	assert.Equal(t, 1, adv.calls)
	assert.Len(t, riskMgr.Positions(), 1)
}

func TestSnapshotFailurePublishesHealthEvent(t *testing.T) {
	provider := &fakeProvider{err: errors.New("feed down")}
	eng, riskMgr, sink := newTestEngine(t, testConfig(), provider, &fakeAdvisor{}, &fakeVenue{})

	for i := 0; i < healthFailureThreshold; i++ {
		require.NoError(t, eng.ForceAnalysisCycle(context.Background()))
	}
	assert.Empty(t, riskMgr.Positions())

	require.Eventually(t, func() bool {
		return len(sink.byKind(events.KindHealth)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOpposingSignalClosesPosition(t *testing.T) {
	provider := &fakeProvider{
		snapshot: &types.AnalysisSnapshot{Symbol: "ETH/USDC", Market: types.MarketData{Price: 2100}},
		price:    2100,
	}
	ven := &fakeVenue{}
	sell := buySignal("s1", 0.8)
	sell.Action = types.ActionSell
	sell2 := buySignal("s2", 0.7)
	sell2.Action = types.ActionSell
	eng, riskMgr, _ := newTestEngine(t, testConfig(), provider, &fakeAdvisor{}, ven,
		&stubStrategy{name: "s1", signals: []types.TradingSignal{sell}},
		&stubStrategy{name: "s2", signals: []types.TradingSignal{sell2}},
	)

	long := buySignal("seed", 0.9)
	riskMgr.AddPosition(context.Background(), long, 2000, 1)

	require.NoError(t, eng.ForceAnalysisCycle(context.Background()))

	assert.Empty(t, riskMgr.Positions(), "opposing consensus should close the long")
	trades := riskMgr.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 100.0, trades[0].PnL, 1e-9)
	// the close replaces execution; no new order went to the venue
	assert.Equal(t, 0, ven.orderCount())
}

func TestExecutionFailureDropsSignal(t *testing.T) {
	provider := &fakeProvider{
		snapshot: &types.AnalysisSnapshot{Symbol: "ETH/USDC", Market: types.MarketData{Price: 2000}},
		price:    2000,
	}
	ven := &fakeVenue{err: errors.New("order rejected")}
	eng, riskMgr, sink := newTestEngine(t, testConfig(), provider, &fakeAdvisor{}, ven,
		&stubStrategy{name: "s1", signals: []types.TradingSignal{buySignal("s1", 0.8)}},
		&stubStrategy{name: "s2", signals: []types.TradingSignal{buySignal("s2", 0.7)}},
	)

	require.NoError(t, eng.ForceAnalysisCycle(context.Background()))

	assert.Empty(t, riskMgr.Positions())
	assert.Empty(t, riskMgr.Trades())
	require.Eventually(t, func() bool {
		return len(sink.byKind(events.KindRisk)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStartStopIdempotent(t *testing.T) {
	cfg := testConfig()
	provider := &fakeProvider{
		snapshot: &types.AnalysisSnapshot{Symbol: "ETH/USDC", Market: types.MarketData{Price: 2000}},
		price:    2000,
	}
	eng, _, _ := newTestEngine(t, cfg, provider, &fakeAdvisor{}, &fakeVenue{})

	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	require.NoError(t, eng.Start(ctx), "second start must no-op")

	eng.Stop(ctx)
	eng.Stop(ctx) // second stop must no-op

	require.NoError(t, eng.Start(ctx), "engine restarts after stop")
	eng.Stop(ctx)
}

func TestMonitorClosesStoppedOutPosition(t *testing.T) {
	provider := &fakeProvider{price: 1880}
	eng, riskMgr, sink := newTestEngine(t, testConfig(), provider, &fakeAdvisor{}, &fakeVenue{})

	long := buySignal("seed", 0.9)
	riskMgr.AddPosition(context.Background(), long, 2000, 1) // stop defaults to 1900

	eng.monitorPositions(context.Background())

	assert.Empty(t, riskMgr.Positions())
	trades := riskMgr.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "Stop loss hit", trades[0].Reason)
	require.Eventually(t, func() bool {
		return len(sink.byKind(events.KindTrade)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUntilNextMidnightUTC(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Minute, untilNextMidnightUTC(now))

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24*time.Hour, untilNextMidnightUTC(start))
}
