package exec

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"bithumb-rebalance-bot/internal/bithumb/auth"

	"go.uber.org/zap"
)

type mockRest struct {
	calls    int
	lastPath string
	params   []auth.Param
	response json.RawMessage
	err      error
}

func (m *mockRest) PrivatePost(ctx context.Context, path string, params []auth.Param) (json.RawMessage, error) {
	_ = ctx
	m.calls++
	m.lastPath = path
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

type mockPrice struct {
	price float64
	err   error
	calls int
}

func (m *mockPrice) TradePrice(ctx context.Context) (float64, error) {
	_ = ctx
	m.calls++
	return m.price, m.err
}

func paramValue(params []auth.Param, key string) string {
	for _, p := range params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

func TestPlaceBuyAdjustsForFee(t *testing.T) {
	rest := &mockRest{response: json.RawMessage(`{"uuid":"order-1"}`)}
	executor := New(rest, nil, "KRW-BTC", 0.0025, zap.NewNop())

	result := executor.PlaceBuy(context.Background(), 300000)
	if !result.Success || result.OrderID != "order-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if rest.lastPath != "/v1/orders" {
		t.Fatalf("unexpected path %s", rest.lastPath)
	}
	if got := paramValue(rest.params, "side"); got != "bid" {
		t.Fatalf("expected side bid, got %s", got)
	}
	if got := paramValue(rest.params, "ord_type"); got != "price" {
		t.Fatalf("expected ord_type price, got %s", got)
	}
	// 300000 * (1 - 0.0025) = 299250, submitted as whole KRW.
	if got := paramValue(rest.params, "price"); got != "299250" {
		t.Fatalf("expected price 299250, got %s", got)
	}
}

func TestPlaceBuyNetworkFailure(t *testing.T) {
	rest := &mockRest{err: errors.New("connection refused")}
	executor := New(rest, nil, "KRW-BTC", 0.0025, zap.NewNop())

	result := executor.PlaceBuy(context.Background(), 300000)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.ErrorDetail, "connection refused") {
		t.Fatalf("expected error detail, got %q", result.ErrorDetail)
	}
	if rest.calls != 1 {
		t.Fatalf("orders are one-shot, got %d calls", rest.calls)
	}
}

func TestPlaceBuyRejectionCapturesRawResponse(t *testing.T) {
	rest := &mockRest{response: json.RawMessage(`{"error":{"name":"insufficient_funds_bid"}}`)}
	executor := New(rest, nil, "KRW-BTC", 0.0025, zap.NewNop())

	result := executor.PlaceBuy(context.Background(), 300000)
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.ErrorDetail, "insufficient_funds_bid") {
		t.Fatalf("expected raw response in detail, got %q", result.ErrorDetail)
	}
}

func TestPlaceSellSubmitsVolume(t *testing.T) {
	rest := &mockRest{response: json.RawMessage(`{"uuid":"order-2"}`)}
	price := &mockPrice{price: 60000000}
	executor := New(rest, price, "KRW-BTC", 0.0025, zap.NewNop())

	result := executor.PlaceSell(context.Background(), 0.00666667)
	if !result.Success || result.OrderID != "order-2" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := paramValue(rest.params, "side"); got != "ask" {
		t.Fatalf("expected side ask, got %s", got)
	}
	if got := paramValue(rest.params, "ord_type"); got != "market" {
		t.Fatalf("expected ord_type market, got %s", got)
	}
	// No fee pre-adjustment on sells, 8 decimal volume.
	if got := paramValue(rest.params, "volume"); got != "0.00666667" {
		t.Fatalf("expected volume 0.00666667, got %s", got)
	}
	if price.calls != 1 {
		t.Fatalf("expected one proceeds estimate fetch, got %d", price.calls)
	}
}

func TestPlaceSellSucceedsWhenEstimateFails(t *testing.T) {
	rest := &mockRest{response: json.RawMessage(`{"uuid":"order-3"}`)}
	price := &mockPrice{err: errors.New("ticker down")}
	executor := New(rest, price, "KRW-BTC", 0.0025, zap.NewNop())

	result := executor.PlaceSell(context.Background(), 0.005)
	if !result.Success {
		t.Fatalf("estimate failure must not fail the order, got %+v", result)
	}
}

func TestOrderIDFromResponse(t *testing.T) {
	if got := OrderIDFromResponse(json.RawMessage(`{"uuid":"abc","side":"bid"}`)); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	for _, raw := range []string{`{}`, `{"uuid":7}`, `[]`, `not json`, `{"error":"x"}`} {
		if got := OrderIDFromResponse(json.RawMessage(raw)); got != "" {
			t.Fatalf("expected empty id for %s, got %q", raw, got)
		}
	}
}
