package venue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"crypto-trading-engine/internal/types"
)

var ErrExecutionFailed = errors.New("execution failed")

// RESTVenue submits orders to a real settlement layer over its HTTP API.
// Timeouts and retries live here, in the adapter; the engine only sees a
// fill or an error.
type RESTVenue struct {
	client *resty.Client
}

func NewRESTVenue(baseURL, apiKey string) *RESTVenue {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &RESTVenue{client: client}
}

type orderResponse struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	FilledPrice    float64 `json:"filled_price"`
	FilledQuantity float64 `json:"filled_quantity"`
	Fee            float64 `json:"fee"`
	Message        string  `json:"message"`
}

func (v *RESTVenue) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderFill, error) {
	var out orderResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("submit order for %s: %w", req.Symbol, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("%w: venue returned %d: %s", ErrExecutionFailed, resp.StatusCode(), resp.String())
	}
	if out.Status == "REJECTED" {
		return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, out.Message)
	}

	return &types.OrderFill{
		OrderID:        out.OrderID,
		FilledPrice:    out.FilledPrice,
		FilledQuantity: out.FilledQuantity,
		Fee:            out.Fee,
	}, nil
}
