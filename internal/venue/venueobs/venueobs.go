package venueobs

import (
	"context"
	"time"

	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/trace"
	"crypto-trading-engine/internal/types"
)

type observableVenue struct {
	venue interfaces.Venue
}

var _ interfaces.Venue = (*observableVenue)(nil)

func Wrap(v interfaces.Venue) interfaces.Venue {
	return &observableVenue{venue: v}
}

func (ov *observableVenue) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderFill, error) {
	ctx, span := trace.StartSpan(ctx, "venue.SubmitOrder")
	defer span.End()

	start := time.Now()

	fill, err := ov.venue.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order submission failed", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"size", req.Size,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Order filled",
		"symbol", req.Symbol,
		"side", req.Side,
		"order_id", fill.OrderID,
		"filled_price", fill.FilledPrice,
		"filled_quantity", fill.FilledQuantity,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return fill, nil
}
