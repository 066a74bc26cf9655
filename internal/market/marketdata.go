package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"bithumb-rebalance-bot/internal/bithumb/rest"
	"bithumb-rebalance-bot/internal/bithumb/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tickerPath = "/v1/ticker"

// MarketData reads the latest trade price of one market, either from the
// public REST ticker or from a live websocket ticker stream.
type MarketData struct {
	rest   *rest.Client
	ws     *ws.Client
	log    *zap.Logger
	market string
	maxAge time.Duration

	mu        sync.RWMutex
	lastPrice float64
	lastTick  time.Time
}

func New(restClient *rest.Client, wsClient *ws.Client, market string, maxAge time.Duration, log *zap.Logger) *MarketData {
	return &MarketData{
		rest:   restClient,
		ws:     wsClient,
		log:    log,
		market: market,
		maxAge: maxAge,
	}
}

func (m *MarketData) Market() string {
	return m.market
}

// Start subscribes to the live ticker stream. Without a websocket client
// every price read falls through to REST.
func (m *MarketData) Start(ctx context.Context) error {
	if m.ws == nil {
		return nil
	}
	sub := []any{
		map[string]any{"ticket": uuid.NewString()},
		map[string]any{"type": "ticker", "codes": []string{m.market}},
		map[string]any{"format": "DEFAULT"},
	}
	if err := m.ws.Connect(ctx); err != nil {
		return err
	}
	if err := m.ws.Subscribe(ctx, sub); err != nil {
		return err
	}
	go func() {
		_ = m.ws.Run(ctx, m.handleMessage)
	}()
	return nil
}

func (m *MarketData) handleMessage(msg json.RawMessage) {
	var tick struct {
		Type       string          `json:"type"`
		Code       string          `json:"code"`
		TradePrice json.RawMessage `json:"trade_price"`
	}
	if err := json.Unmarshal(msg, &tick); err != nil {
		return
	}
	if tick.Type != "ticker" || tick.Code != m.market {
		return
	}
	price, ok := priceFromRaw(tick.TradePrice)
	if !ok || price <= 0 {
		return
	}
	m.mu.Lock()
	m.lastPrice = price
	m.lastTick = time.Now()
	m.mu.Unlock()
}

// Price returns the freshest known trade price: the live tick when it is
// younger than maxAge, the REST ticker otherwise. A failed fetch is an
// error, never a zero price.
func (m *MarketData) Price(ctx context.Context) (float64, error) {
	m.mu.RLock()
	price := m.lastPrice
	age := time.Since(m.lastTick)
	m.mu.RUnlock()
	if price > 0 && m.maxAge > 0 && age <= m.maxAge {
		return price, nil
	}
	return m.TradePrice(ctx)
}

// TradePrice fetches the latest trade price over REST.
func (m *MarketData) TradePrice(ctx context.Context) (float64, error) {
	raw, err := m.rest.PublicGet(ctx, tickerPath, "markets="+m.market)
	if err != nil {
		return 0, err
	}
	price, err := parseTradePrice(raw)
	if err != nil {
		if m.log != nil {
			m.log.Warn("ticker response malformed", zap.String("market", m.market), zap.Error(err))
		}
		return 0, err
	}
	return price, nil
}

func parseTradePrice(raw json.RawMessage) (float64, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("decode ticker response: %w", err)
	}
	if len(entries) == 0 {
		return 0, errors.New("ticker response is empty")
	}
	field, ok := entries[0]["trade_price"]
	if !ok {
		return 0, errors.New("ticker response missing trade_price")
	}
	price, ok := priceFromRaw(field)
	if !ok {
		return 0, errors.New("ticker trade_price is not a number")
	}
	if price <= 0 {
		return 0, fmt.Errorf("ticker trade_price %v is not positive", price)
	}
	return price, nil
}

// priceFromRaw accepts both JSON numbers and numeric strings; the exchange
// emits numbers on the ticker but quotes numerics elsewhere.
func priceFromRaw(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, true
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, parseErr := strconv.ParseFloat(asString, 64)
		if parseErr == nil {
			return parsed, true
		}
	}
	return 0, false
}
