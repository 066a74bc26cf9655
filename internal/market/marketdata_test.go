package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bithumb-rebalance-bot/internal/bithumb/rest"

	"go.uber.org/zap"
)

func restClient(t *testing.T, baseURL string) *rest.Client {
	t.Helper()
	return rest.New(baseURL, 5*time.Second, nil, zap.NewNop())
}

func TestTradePrice(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"market":"KRW-BTC","trade_price":60000000.0}]`))
	}))
	defer srv.Close()

	m := New(restClient(t, srv.URL), nil, "KRW-BTC", 0, zap.NewNop())
	price, err := m.TradePrice(context.Background())
	if err != nil {
		t.Fatalf("trade price: %v", err)
	}
	if price != 60000000 {
		t.Fatalf("expected 60000000, got %v", price)
	}
	if gotQuery != "markets=KRW-BTC" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestTradePriceEmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m := New(restClient(t, srv.URL), nil, "KRW-BTC", 0, zap.NewNop())
	price, err := m.TradePrice(context.Background())
	if err == nil {
		t.Fatalf("expected error for empty ticker response")
	}
	if price != 0 {
		t.Fatalf("failed fetch must not report a price, got %v", price)
	}
}

func TestTradePriceMalformedResponseIsError(t *testing.T) {
	cases := []string{
		`[{"market":"KRW-BTC"}]`,
		`{"market":"KRW-BTC"}`,
		`[{"trade_price":"abc"}]`,
		`[{"trade_price":0}]`,
	}
	for _, body := range cases {
		payload := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(payload))
		}))
		m := New(restClient(t, srv.URL), nil, "KRW-BTC", 0, zap.NewNop())
		if _, err := m.TradePrice(context.Background()); err == nil {
			t.Fatalf("expected error for body %s", payload)
		}
		srv.Close()
	}
}

func TestTradePriceAcceptsQuotedNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"trade_price":"60000000"}]`))
	}))
	defer srv.Close()

	m := New(restClient(t, srv.URL), nil, "KRW-BTC", 0, zap.NewNop())
	price, err := m.TradePrice(context.Background())
	if err != nil {
		t.Fatalf("trade price: %v", err)
	}
	if price != 60000000 {
		t.Fatalf("expected 60000000, got %v", price)
	}
}

func TestPricePrefersFreshTick(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"trade_price":50000000}]`))
	}))
	defer srv.Close()

	m := New(restClient(t, srv.URL), nil, "KRW-BTC", time.Minute, zap.NewNop())
	m.handleMessage(json.RawMessage(`{"type":"ticker","code":"KRW-BTC","trade_price":61000000}`))
	price, err := m.Price(context.Background())
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 61000000 {
		t.Fatalf("expected live tick 61000000, got %v", price)
	}
}

func TestPriceFallsBackToRESTWhenStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"trade_price":50000000}]`))
	}))
	defer srv.Close()

	m := New(restClient(t, srv.URL), nil, "KRW-BTC", time.Millisecond, zap.NewNop())
	m.handleMessage(json.RawMessage(`{"type":"ticker","code":"KRW-BTC","trade_price":61000000}`))
	time.Sleep(5 * time.Millisecond)
	price, err := m.Price(context.Background())
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 50000000 {
		t.Fatalf("expected REST fallback 50000000, got %v", price)
	}
}

func TestHandleMessageIgnoresOtherMarkets(t *testing.T) {
	m := New(nil, nil, "KRW-BTC", time.Minute, zap.NewNop())
	m.handleMessage(json.RawMessage(`{"type":"ticker","code":"KRW-ETH","trade_price":4000000}`))
	m.handleMessage(json.RawMessage(`{"type":"trade","code":"KRW-BTC","trade_price":1}`))
	m.handleMessage(json.RawMessage(`not json`))
	if m.lastPrice != 0 {
		t.Fatalf("unexpected cached price %v", m.lastPrice)
	}
}
