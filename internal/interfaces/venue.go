package interfaces

import (
	"context"

	"crypto-trading-engine/internal/types"
)

// Venue settles sized, validated orders. It may be a paper simulator or a
// real execution layer; the engine only requires a fill or an error.
type Venue interface {
	SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderFill, error)
}
