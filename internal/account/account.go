package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"bithumb-rebalance-bot/internal/bithumb/rest"
	"bithumb-rebalance-bot/internal/market"
	"bithumb-rebalance-bot/internal/rebalance"

	"go.uber.org/zap"
)

const accountsPath = "/v1/accounts"

// Reader fetches account balances and combines them with the latest trade
// price into a portfolio snapshot.
type Reader struct {
	rest   *rest.Client
	market *market.MarketData
	log    *zap.Logger
	cash   string
	asset  string
}

func New(restClient *rest.Client, marketData *market.MarketData, cash, asset string, log *zap.Logger) *Reader {
	return &Reader{
		rest:   restClient,
		market: marketData,
		log:    log,
		cash:   cash,
		asset:  asset,
	}
}

// Snapshot reads balances and price and returns a fresh valuation. Any
// missing balance row or failed price fetch is an error; the caller treats
// it as "state unknown" and skips the cycle.
func (r *Reader) Snapshot(ctx context.Context) (rebalance.Snapshot, error) {
	raw, err := r.rest.PrivateGet(ctx, accountsPath, nil)
	if err != nil {
		return rebalance.Snapshot{}, fmt.Errorf("fetch accounts: %w", err)
	}
	balances, err := parseBalances(raw)
	if err != nil {
		return rebalance.Snapshot{}, err
	}
	cashBalance, ok := balances[r.cash]
	if !ok {
		return rebalance.Snapshot{}, fmt.Errorf("accounts response missing %s balance", r.cash)
	}
	assetBalance, ok := balances[r.asset]
	if !ok {
		return rebalance.Snapshot{}, fmt.Errorf("accounts response missing %s balance", r.asset)
	}
	price, err := r.market.Price(ctx)
	if err != nil {
		return rebalance.Snapshot{}, fmt.Errorf("fetch price: %w", err)
	}
	return rebalance.NewSnapshot(cashBalance, assetBalance, price), nil
}

func parseBalances(raw json.RawMessage) (map[string]float64, error) {
	var rows []struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode accounts response: %w", err)
	}
	balances := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Currency == "" {
			continue
		}
		value, err := strconv.ParseFloat(row.Balance, 64)
		if err != nil {
			return nil, fmt.Errorf("balance for %s is not a number: %w", row.Currency, err)
		}
		balances[row.Currency] = value
	}
	return balances, nil
}
