package events

import (
	"context"

	"crypto-trading-engine/internal/logger"
)

// LogSink writes every event through the structured logger. It is the
// default sink and always registered.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Consume(ev Event) {
	ctx := context.Background()
	switch ev.Kind {
	case KindSignal:
		if ev.Signal != nil {
			logger.Signal(ctx, ev.Signal.Symbol, ev.Signal.Action, ev.Signal.Confidence, ev.Signal.Reason)
		}
	case KindTrade:
		if ev.Trade != nil {
			logger.Trade(ctx, ev.Trade.Symbol, ev.Trade.Side, ev.Trade.Quantity, ev.Trade.Price, ev.Trade.ID, "pnl", ev.Trade.PnL, "reason", ev.Trade.Reason)
		}
	case KindRisk:
		logger.Risk(ctx, ev.Symbol, "RISK_EVENT", "message", ev.Message)
	case KindHealth:
		logger.Warn(ctx, "Health event", "symbol", ev.Symbol, "message", ev.Message)
	}
}

func (LogSink) Close() error { return nil }
