package events

import (
	"time"

	"crypto-trading-engine/internal/types"
)

// Event kinds published on the bus.
const (
	KindSignal = "SIGNAL"
	KindTrade  = "TRADE"
	KindRisk   = "RISK"
	KindHealth = "HEALTH"
)

// Event is one outbound notification. Consumers (metrics, logging, brokers)
// are decoupled from the orchestration loop and can never block it.
type Event struct {
	Kind      string               `json:"kind"`
	Symbol    string               `json:"symbol,omitempty"`
	Message   string               `json:"message,omitempty"`
	Signal    *types.TradingSignal `json:"signal,omitempty"`
	Trade     *types.Trade         `json:"trade,omitempty"`
	Position  *types.Position      `json:"position,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Sink consumes published events. Implementations must tolerate bursts;
// slow sinks lose events rather than stall the publisher.
type Sink interface {
	Consume(Event)
	Close() error
}
