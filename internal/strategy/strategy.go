package strategy

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crypto-trading-engine/internal/types"
)

// Strategy analyzes one snapshot and proposes zero or more signals.
// Implementations are pure: recoverable data issues (missing indicators,
// stale sentiment) return an empty slice, not an error. Errors are reserved
// for programmer-level misuse.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error)
}

var signalSeq atomic.Uint64

func newSignalID(strategy string) string {
	return fmt.Sprintf("%s-%d-%d", strategy, time.Now().UnixMilli(), signalSeq.Add(1))
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}
