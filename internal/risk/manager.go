package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/types"
)

var ErrPositionNotFound = errors.New("position not found")

// Rejection reasons returned by ValidateTrade.
const (
	ReasonDailyLossLimit   = "Daily loss limit reached"
	ReasonMaxOpenPositions = "Maximum open positions reached"
	ReasonCorrelationRisk  = "Correlation risk too high"
)

// Close reasons recorded on autonomously closed positions.
const (
	ReasonStopLoss   = "Stop loss hit"
	ReasonTakeProfit = "Take profit hit"
)

// Sizing policies.
const (
	SizingFixed      = "FIXED"
	SizingKelly      = "KELLY"
	SizingVolatility = "VOLATILITY"
)

const (
	kellyFraction        = 0.25 // fractional-Kelly safety factor
	volatilityTargetRisk = 0.02 // 2% of portfolio at risk per trade
	maxCorrelation       = 0.8
	tradingDaysPerYear   = 252
)

type Config struct {
	InitialCapital   float64
	MaxPositionSize  float64 // fraction of portfolio, 0-1
	MaxDailyLoss     float64 // fraction of daily baseline, 0-1
	MaxOpenPositions int
	StopLossPct      float64 // e.g. 0.05
	TakeProfitPct    float64 // e.g. 0.10
	SizingMethod     string
	TrailingStop     bool
}

// ValidationResult is the outcome of validating one signal against the
// portfolio constraints.
type ValidationResult struct {
	IsValid        bool
	Reason         string
	AdjustedSignal *types.TradingSignal
}

// Manager owns the position and trade ledger. All mutation funnels through
// its methods under one mutex, so concurrent loops observe a consistent
// snapshot (single-writer discipline on the ledger).
type Manager struct {
	mu  sync.Mutex
	cfg Config

	positions     map[string]*types.Position
	trades        []types.Trade
	realizedPnL   float64
	dailyPnL      float64
	dailyBaseline float64
	seq           uint64
}

func NewManager(cfg Config) *Manager {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 10000
	}
	if cfg.SizingMethod == "" {
		cfg.SizingMethod = SizingFixed
	}
	return &Manager{
		cfg:           cfg,
		positions:     make(map[string]*types.Position),
		dailyBaseline: cfg.InitialCapital,
	}
}

// CalculatePositionSize returns the portfolio fraction to allocate to the
// signal, per the configured sizing policy, clamped to the maximum position
// size and to currently available capital.
func (m *Manager) CalculatePositionSize(signal types.TradingSignal, currentPrice, volatility float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionSizeLocked(signal, currentPrice, volatility)
}

func (m *Manager) positionSizeLocked(signal types.TradingSignal, currentPrice, volatility float64) float64 {
	var size float64

	switch m.cfg.SizingMethod {
	case SizingKelly:
		size = m.kellySize(signal.Confidence)
	case SizingVolatility:
		size = m.volatilitySize(volatility)
	default:
		size = m.cfg.MaxPositionSize
	}

	if size < 0 {
		size = 0
	}
	if size > m.cfg.MaxPositionSize {
		size = m.cfg.MaxPositionSize
	}

	// The required capital may never exceed what is not already allocated
	// to open positions.
	portfolio := m.portfolioValueLocked()
	if portfolio > 0 {
		available := portfolio - m.allocatedCapitalLocked()
		if available < 0 {
			available = 0
		}
		if maxAffordable := available / portfolio; size > maxAffordable {
			size = maxAffordable
		}
	}
	return size
}

// kellySize computes f = (p*b - q) / b with p the signal confidence and b
// the configured take-profit/stop-loss odds ratio, scaled by the fractional
// Kelly factor. The odds deliberately use the configured percentages, not
// the signal's own target and stop.
func (m *Manager) kellySize(confidence float64) float64 {
	if m.cfg.StopLossPct <= 0 {
		return 0
	}
	b := m.cfg.TakeProfitPct / m.cfg.StopLossPct
	if b <= 0 {
		return 0
	}
	p := confidence
	q := 1 - p
	f := (p*b - q) / b
	if f < 0 {
		return 0
	}
	return f * kellyFraction
}

func (m *Manager) volatilitySize(volatility float64) float64 {
	if volatility <= 0 || m.cfg.StopLossPct <= 0 {
		return m.cfg.MaxPositionSize
	}
	return volatilityTargetRisk / (volatility * m.cfg.StopLossPct)
}

// ValidateTrade checks a signal against the portfolio-level constraints.
// On acceptance the returned signal is a copy with PositionSize replaced by
// the freshly computed size.
func (m *Manager) ValidateTrade(ctx context.Context, signal types.TradingSignal) ValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyBaseline > 0 && m.dailyPnL <= -m.cfg.MaxDailyLoss*m.dailyBaseline {
		logger.Risk(ctx, signal.Symbol, "DAILY_LOSS_LIMIT", "daily_pnl", m.dailyPnL, "baseline", m.dailyBaseline)
		return ValidationResult{IsValid: false, Reason: ReasonDailyLossLimit}
	}

	if len(m.positions) >= m.cfg.MaxOpenPositions {
		logger.Risk(ctx, signal.Symbol, "MAX_OPEN_POSITIONS", "open", len(m.positions), "max", m.cfg.MaxOpenPositions)
		return ValidationResult{IsValid: false, Reason: ReasonMaxOpenPositions}
	}

	if corr := m.correlationLocked(signal.Symbol); corr > maxCorrelation {
		logger.Risk(ctx, signal.Symbol, "CORRELATION_RISK", "correlation", corr)
		return ValidationResult{IsValid: false, Reason: ReasonCorrelationRisk}
	}

	adjusted := signal
	adjusted.PositionSize = m.positionSizeLocked(signal, signal.EntryPrice, signalVolatility(signal))
	return ValidationResult{IsValid: true, AdjustedSignal: &adjusted}
}

// signalVolatility approximates per-signal volatility from the distance
// between entry and stop when the strategy set one.
func signalVolatility(signal types.TradingSignal) float64 {
	if signal.StopLoss <= 0 || signal.EntryPrice <= 0 {
		return 0
	}
	return math.Abs(signal.EntryPrice-signal.StopLoss) / signal.EntryPrice
}

// correlationLocked approximates correlation risk as the fraction of open
// positions sharing the incoming symbol's base asset.
func (m *Manager) correlationLocked(symbol string) float64 {
	if len(m.positions) == 0 {
		return 0
	}
	base := baseAsset(symbol)
	same := 0
	for _, p := range m.positions {
		if baseAsset(p.Symbol) == base {
			same++
		}
	}
	return float64(same) / float64(len(m.positions))
}

func baseAsset(symbol string) string {
	if i := strings.IndexAny(symbol, "/-"); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// AddPosition opens a position for an accepted, executed signal. Two
// positions on the same symbol never merge; every open gets its own id.
func (m *Manager) AddPosition(ctx context.Context, signal types.TradingSignal, fillPrice, quantity float64) *types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	side := types.SideLong
	if signal.Action == types.ActionSell {
		side = types.SideShort
	}

	stop := signal.StopLoss
	takeProfit := signal.TargetPrice
	if stop <= 0 {
		if side == types.SideLong {
			stop = fillPrice * (1 - m.cfg.StopLossPct)
		} else {
			stop = fillPrice * (1 + m.cfg.StopLossPct)
		}
	}
	if takeProfit <= 0 {
		if side == types.SideLong {
			takeProfit = fillPrice * (1 + m.cfg.TakeProfitPct)
		} else {
			takeProfit = fillPrice * (1 - m.cfg.TakeProfitPct)
		}
	}

	m.seq++
	pos := &types.Position{
		ID:           fmt.Sprintf("pos-%d-%d", time.Now().UnixMilli(), m.seq),
		Symbol:       signal.Symbol,
		Side:         side,
		EntryPrice:   fillPrice,
		CurrentPrice: fillPrice,
		Quantity:     quantity,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		OpenedAt:     time.Now(),
	}
	m.positions[pos.ID] = pos

	logger.Info(ctx, "Position opened",
		"position_id", pos.ID,
		"symbol", pos.Symbol,
		"side", pos.Side,
		"entry_price", pos.EntryPrice,
		"quantity", pos.Quantity,
		"stop_loss", pos.StopLoss,
		"take_profit", pos.TakeProfit,
	)
	out := *pos
	return &out
}

// UpdatePosition marks a position to market and closes it the moment the
// price crosses its stop-loss or take-profit. The check runs on every price
// update, never on a separate timer. Returns the close trade when the update
// triggered one.
func (m *Manager) UpdatePosition(ctx context.Context, id string, currentPrice float64) (*types.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok {
		return nil, fmt.Errorf("update position %s: %w", id, ErrPositionNotFound)
	}

	pos.CurrentPrice = currentPrice
	pos.PnL = positionPnL(pos.Side, pos.EntryPrice, currentPrice, pos.Quantity)
	if pos.EntryPrice > 0 {
		pos.PnLPercentage = pos.PnL / (pos.EntryPrice * pos.Quantity) * 100
	}

	if pos.StopLoss > 0 && stopCrossed(pos.Side, currentPrice, pos.StopLoss) {
		return m.closeLocked(ctx, pos, currentPrice, ReasonStopLoss), nil
	}
	if pos.TakeProfit > 0 && takeProfitCrossed(pos.Side, currentPrice, pos.TakeProfit) {
		return m.closeLocked(ctx, pos, currentPrice, ReasonTakeProfit), nil
	}

	// Trailing stop only tightens, never loosens.
	if m.cfg.TrailingStop && pos.Side == types.SideLong {
		if candidate := currentPrice * (1 - m.cfg.StopLossPct); candidate > pos.StopLoss {
			pos.StopLoss = candidate
		}
	}
	return nil, nil
}

// ClosePosition closes a position at the given exit price, converting it to
// a trade ledger entry. Closed positions never re-open.
func (m *Manager) ClosePosition(ctx context.Context, id string, exitPrice float64, reason string) (*types.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok {
		return nil, fmt.Errorf("close position %s: %w", id, ErrPositionNotFound)
	}
	return m.closeLocked(ctx, pos, exitPrice, reason), nil
}

func (m *Manager) closeLocked(ctx context.Context, pos *types.Position, exitPrice float64, reason string) *types.Trade {
	pnl := positionPnL(pos.Side, pos.EntryPrice, exitPrice, pos.Quantity)

	now := time.Now()
	pos.CurrentPrice = exitPrice
	pos.PnL = pnl
	pos.ClosedAt = &now
	delete(m.positions, pos.ID)

	m.seq++
	trade := types.Trade{
		ID:        fmt.Sprintf("trade-%d-%d", now.UnixMilli(), m.seq),
		Symbol:    pos.Symbol,
		Side:      pos.Side,
		Price:     exitPrice,
		Quantity:  pos.Quantity,
		PnL:       pnl,
		Reason:    reason,
		Timestamp: now,
	}
	m.trades = append(m.trades, trade)
	m.realizedPnL += pnl
	m.dailyPnL += pnl

	logger.Trade(ctx, trade.Symbol, trade.Side, trade.Quantity, trade.Price, trade.ID,
		"pnl", pnl,
		"reason", reason,
		"position_id", pos.ID,
	)
	return &trade
}

// OpenPositionFor returns the open position on a symbol, if any.
func (m *Manager) OpenPositionFor(symbol string) (types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.positions {
		if p.Symbol == symbol {
			return *p, true
		}
	}
	return types.Position{}, false
}

// ResetDaily zeroes the daily PnL and rebases the daily baseline. The
// orchestrator invokes this exactly once per trading-day boundary; extra
// calls are harmless no-ops on an already reset day.
func (m *Manager) ResetDaily(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.dailyBaseline = m.portfolioValueLocked()
	logger.Info(ctx, "Daily risk state reset", "baseline", m.dailyBaseline)
}

// CalculateRiskMetrics derives the portfolio metrics from the trade ledger
// and the open position set.
func (m *Manager) CalculateRiskMetrics() types.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := types.RiskMetrics{
		PortfolioValue: m.portfolioValueLocked(),
		DailyPnL:       m.dailyPnL,
		OpenPositions:  len(m.positions),
	}
	if m.dailyBaseline > 0 {
		metrics.DailyPnLPercentage = m.dailyPnL / m.dailyBaseline * 100
	}

	closed := len(m.trades)
	if closed == 0 {
		return metrics
	}

	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, t := range m.trades {
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else {
			losses++
			lossSum += -t.PnL
		}
	}
	metrics.WinRate = float64(wins) / float64(closed) * 100
	if wins > 0 {
		metrics.AverageWin = winSum / float64(wins)
	}
	if losses > 0 {
		metrics.AverageLoss = lossSum / float64(losses)
	}
	if metrics.AverageLoss > 0 {
		metrics.RiskRewardRatio = metrics.AverageWin / metrics.AverageLoss
	}
	metrics.MaxDrawdown = m.maxDrawdownLocked()
	metrics.SharpeRatio = m.sharpeLocked()
	return metrics
}

// maxDrawdownLocked walks the realized-equity curve trade by trade and
// tracks the largest peak-to-trough percentage decline.
func (m *Manager) maxDrawdownLocked() float64 {
	equity := m.cfg.InitialCapital
	peak := equity
	maxDD := 0.0
	for _, t := range m.trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeLocked annualizes the mean-to-stddev ratio of per-trade returns.
// Defined as 0 with fewer than 2 trades or zero variance.
func (m *Manager) sharpeLocked() float64 {
	if len(m.trades) < 2 || m.cfg.InitialCapital <= 0 {
		return 0
	}
	returns := make([]float64, len(m.trades))
	mean := 0.0
	for i, t := range m.trades {
		returns[i] = t.PnL / m.cfg.InitialCapital
		mean += returns[i]
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (mean * tradingDaysPerYear) / (std * math.Sqrt(tradingDaysPerYear))
}

// Positions returns a copy of the open position set.
func (m *Manager) Positions() []types.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Trades returns a copy of the closed-trade ledger.
func (m *Manager) Trades() []types.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// PortfolioValue is initial capital plus realized and unrealized PnL.
func (m *Manager) PortfolioValue() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolioValueLocked()
}

func (m *Manager) portfolioValueLocked() float64 {
	v := m.cfg.InitialCapital + m.realizedPnL
	for _, p := range m.positions {
		v += p.PnL
	}
	return v
}

func (m *Manager) allocatedCapitalLocked() float64 {
	allocated := 0.0
	for _, p := range m.positions {
		allocated += p.EntryPrice * p.Quantity
	}
	return allocated
}

func positionPnL(side string, entry, current, quantity float64) float64 {
	delta := current - entry
	if side == types.SideShort {
		delta = -delta
	}
	return delta * quantity
}

func stopCrossed(side string, price, stop float64) bool {
	if side == types.SideLong {
		return price <= stop
	}
	return price >= stop
}

func takeProfitCrossed(side string, price, tp float64) bool {
	if side == types.SideLong {
		return price >= tp
	}
	return price <= tp
}
