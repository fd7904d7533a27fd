package venue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/types"
)

var ErrInvalidOrder = errors.New("invalid order")

// PaperVenue simulates fills locally. Fill price applies configured slippage
// against the submitted reference price and fees accrue at the configured
// rate. Money arithmetic runs on decimals so simulated fees do not drift.
type PaperVenue struct {
	feeRate     decimal.Decimal
	slippageBps decimal.Decimal
	orderSeq    atomic.Uint64
}

func NewPaperVenue(feeRate, slippageBps float64) *PaperVenue {
	return &PaperVenue{
		feeRate:     decimal.NewFromFloat(feeRate),
		slippageBps: decimal.NewFromFloat(slippageBps),
	}
}

func (v *PaperVenue) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderFill, error) {
	if req.Size <= 0 || req.Price <= 0 {
		return nil, fmt.Errorf("%w: size=%.4f price=%.4f", ErrInvalidOrder, req.Size, req.Price)
	}
	if req.Side != types.ActionBuy && req.Side != types.ActionSell {
		return nil, fmt.Errorf("%w: side=%q", ErrInvalidOrder, req.Side)
	}

	price := decimal.NewFromFloat(req.Price)
	slip := price.Mul(v.slippageBps).Div(decimal.NewFromInt(10000))
	if req.Side == types.ActionBuy {
		price = price.Add(slip)
	} else {
		price = price.Sub(slip)
	}

	size := decimal.NewFromFloat(req.Size)
	quantity := size.Div(price)
	fee := size.Mul(v.feeRate)

	fill := &types.OrderFill{
		OrderID:        fmt.Sprintf("paper-%d-%d", time.Now().UnixMilli(), v.orderSeq.Add(1)),
		FilledPrice:    price.InexactFloat64(),
		FilledQuantity: quantity.InexactFloat64(),
		Fee:            fee.InexactFloat64(),
	}

	logger.Debug(ctx, "Paper fill",
		"order_id", fill.OrderID,
		"symbol", req.Symbol,
		"side", req.Side,
		"filled_price", fill.FilledPrice,
		"filled_quantity", fill.FilledQuantity,
		"fee", fill.Fee,
	)
	return fill, nil
}
