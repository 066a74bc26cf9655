package exec

import (
	"context"
	"encoding/json"
	"strconv"

	"bithumb-rebalance-bot/internal/bithumb/auth"

	"go.uber.org/zap"
)

const ordersPath = "/v1/orders"

// OrderResult is terminal: failed orders are not retried, the next
// scheduled cycle re-evaluates from fresh state.
type OrderResult struct {
	Success     bool
	OrderID     string
	ErrorDetail string
}

type OrderClient interface {
	PrivatePost(ctx context.Context, path string, params []auth.Param) (json.RawMessage, error)
}

type PriceSource interface {
	TradePrice(ctx context.Context) (float64, error)
}

// Executor submits one-shot market orders for a single market.
type Executor struct {
	rest    OrderClient
	market  PriceSource
	log     *zap.Logger
	code    string
	feeRate float64
}

func New(restClient OrderClient, priceSource PriceSource, marketCode string, feeRate float64, log *zap.Logger) *Executor {
	return &Executor{
		rest:    restClient,
		market:  priceSource,
		log:     log,
		code:    marketCode,
		feeRate: feeRate,
	}
}

// PlaceBuy submits a market buy sized by cash notional. The requested
// amount is reduced by the fee rate up front so the spend including fee
// stays within the requested notional. KRW notionals are whole units.
func (e *Executor) PlaceBuy(ctx context.Context, amountCash float64) OrderResult {
	actual := amountCash * (1 - e.feeRate)
	params := []auth.Param{
		{Key: "market", Value: e.code},
		{Key: "side", Value: "bid"},
		{Key: "ord_type", Value: "price"},
		{Key: "price", Value: strconv.FormatInt(int64(actual), 10)},
	}
	result := e.submit(ctx, params)
	if result.Success {
		e.log.Info("buy order placed",
			zap.String("market", e.code),
			zap.Float64("requested_cash", amountCash),
			zap.Float64("submitted_cash", actual),
			zap.String("order_id", result.OrderID),
		)
	} else {
		e.log.Warn("buy order failed",
			zap.String("market", e.code),
			zap.Float64("requested_cash", amountCash),
			zap.String("detail", result.ErrorDetail),
		)
	}
	return result
}

// PlaceSell submits a market sell sized by asset quantity. The fee is
// taken from the proceeds by the exchange, so no pre-adjustment.
func (e *Executor) PlaceSell(ctx context.Context, amountAsset float64) OrderResult {
	params := []auth.Param{
		{Key: "market", Value: e.code},
		{Key: "side", Value: "ask"},
		{Key: "ord_type", Value: "market"},
		{Key: "volume", Value: strconv.FormatFloat(amountAsset, 'f', 8, 64)},
	}
	result := e.submit(ctx, params)
	if result.Success {
		fields := []zap.Field{
			zap.String("market", e.code),
			zap.Float64("volume", amountAsset),
			zap.String("order_id", result.OrderID),
		}
		// Best effort: a failed estimate never fails the order result.
		if e.market != nil {
			if price, err := e.market.TradePrice(ctx); err == nil {
				fields = append(fields, zap.Float64("estimated_proceeds", amountAsset*price))
			}
		}
		e.log.Info("sell order placed", fields...)
	} else {
		e.log.Warn("sell order failed",
			zap.String("market", e.code),
			zap.Float64("volume", amountAsset),
			zap.String("detail", result.ErrorDetail),
		)
	}
	return result
}

func (e *Executor) submit(ctx context.Context, params []auth.Param) OrderResult {
	raw, err := e.rest.PrivatePost(ctx, ordersPath, params)
	if err != nil {
		return OrderResult{ErrorDetail: err.Error()}
	}
	orderID := OrderIDFromResponse(raw)
	if orderID == "" {
		return OrderResult{ErrorDetail: string(raw)}
	}
	return OrderResult{Success: true, OrderID: orderID}
}
