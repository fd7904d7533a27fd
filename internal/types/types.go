package types

import "time"

// Signal actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Position sides.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

type MarketData struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Change24h float64   `json:"change_24h"`
	Timestamp time.Time `json:"timestamp"`
}

type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type TechnicalIndicators struct {
	RSI       float64   `json:"rsi"`
	MACD      MACD      `json:"macd"`
	SMA20     float64   `json:"sma20"`
	SMA50     float64   `json:"sma50"`
	EMA12     float64   `json:"ema12"`
	EMA26     float64   `json:"ema26"`
	Bollinger Bollinger `json:"bollinger"`
	ATR       float64   `json:"atr"`
	Timestamp time.Time `json:"timestamp"`
}

type SentimentData struct {
	Score         float64            `json:"score"` // -1 .. 1
	SourceScores  map[string]float64 `json:"source_scores"`
	MentionVolume int                `json:"mention_volume"`
	Timestamp     time.Time          `json:"timestamp"`
}

type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Score       float64   `json:"score"`
	PublishedAt time.Time `json:"published_at"`
}

// AnalysisSnapshot bundles everything the strategies see for one symbol in
// one cycle. Immutable once constructed.
type AnalysisSnapshot struct {
	Symbol     string              `json:"symbol"`
	Market     MarketData          `json:"market"`
	Technicals TechnicalIndicators `json:"technicals"`
	Sentiment  SentimentData       `json:"sentiment"`
	News       []NewsItem          `json:"news,omitempty"`
}

// TradingSignal is a proposed directional trade, not yet validated against
// portfolio constraints. Arbitration and risk validation rewrite signals by
// copy; an accepted signal is never mutated afterwards.
type TradingSignal struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"` // 0 .. 1
	Reason       string    `json:"reason"`
	EntryPrice   float64   `json:"entry_price"`
	TargetPrice  float64   `json:"target_price,omitempty"`
	StopLoss     float64   `json:"stop_loss,omitempty"`
	PositionSize float64   `json:"position_size,omitempty"` // fraction of portfolio
	Leverage     float64   `json:"leverage,omitempty"`
	Strategy     string    `json:"strategy"`
	Timestamp    time.Time `json:"timestamp"`
}

type Position struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Side          string     `json:"side"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	Quantity      float64    `json:"quantity"`
	StopLoss      float64    `json:"stop_loss,omitempty"`
	TakeProfit    float64    `json:"take_profit,omitempty"`
	PnL           float64    `json:"pnl"`
	PnLPercentage float64    `json:"pnl_percentage"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// Trade is an immutable, append-only ledger entry written when a position
// closes or a spot action executes without an open-position concept.
type Trade struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Fee       float64   `json:"fee"`
	PnL       float64   `json:"pnl,omitempty"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskMetrics is derived on demand from the trade ledger and the open
// position set; it is never persisted separately.
type RiskMetrics struct {
	PortfolioValue     float64 `json:"portfolio_value"`
	DailyPnL           float64 `json:"daily_pnl"`
	DailyPnLPercentage float64 `json:"daily_pnl_percentage"`
	OpenPositions      int     `json:"open_positions"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	WinRate            float64 `json:"win_rate"`
	AverageWin         float64 `json:"average_win"`
	AverageLoss        float64 `json:"average_loss"`
	RiskRewardRatio    float64 `json:"risk_reward_ratio"`
}

type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"` // BUY or SELL
	Size     float64 `json:"size"` // quote-currency notional
	Price    float64 `json:"price,omitempty"`
	Leverage float64 `json:"leverage,omitempty"`
	Tag      string  `json:"tag,omitempty"`
}

type OrderFill struct {
	OrderID        string  `json:"order_id"`
	FilledPrice    float64 `json:"filled_price"`
	FilledQuantity float64 `json:"filled_quantity"`
	Fee            float64 `json:"fee"`
}
