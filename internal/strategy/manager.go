package strategy

import (
	"context"
	"fmt"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/types"
)

// Manager holds the registered strategies and fans one snapshot out to all
// of them. One strategy failing must never prevent the others from
// reporting, so every call is isolated and panics are recovered.
type Manager struct {
	order      []string
	strategies map[string]Strategy
}

func NewManager(strategies ...Strategy) *Manager {
	m := &Manager{strategies: make(map[string]Strategy)}
	for _, s := range strategies {
		m.Register(s)
	}
	return m
}

// Register adds a strategy under its name. Registering the same name twice
// replaces the earlier entry and keeps the original ordering.
func (m *Manager) Register(s Strategy) {
	if _, exists := m.strategies[s.Name()]; !exists {
		m.order = append(m.order, s.Name())
	}
	m.strategies[s.Name()] = s
}

// Names returns the registered strategy names in registration order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AnalyzeWithAllStrategies runs every registered strategy over the snapshot
// and returns their outputs keyed by strategy name. Failed strategies are
// logged and omitted from the map.
func (m *Manager) AnalyzeWithAllStrategies(ctx context.Context, snap *types.AnalysisSnapshot) map[string][]types.TradingSignal {
	results := make(map[string][]types.TradingSignal, len(m.order))
	for _, name := range m.order {
		signals, err := m.analyzeOne(ctx, m.strategies[name], snap)
		if err != nil {
			logger.ErrorWithErr(ctx, "Strategy analysis failed", err,
				"strategy", name,
				"symbol", snap.Symbol,
			)
			continue
		}
		results[name] = signals
	}
	return results
}

func (m *Manager) analyzeOne(ctx context.Context, s Strategy, snap *types.AnalysisSnapshot) (signals []types.TradingSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Analyze(ctx, snap)
}
