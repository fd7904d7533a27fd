package interfaces

import (
	"context"

	"crypto-trading-engine/internal/types"
)

// SnapshotProvider supplies per-symbol analysis bundles. A failed snapshot
// means the symbol is skipped for the cycle, never that the cycle aborts.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, symbol string) (*types.AnalysisSnapshot, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
