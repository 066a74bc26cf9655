package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bithumb-rebalance-bot/internal/account"
	"bithumb-rebalance-bot/internal/app"
	"bithumb-rebalance-bot/internal/bithumb/auth"
	"bithumb-rebalance-bot/internal/bithumb/rest"
	"bithumb-rebalance-bot/internal/config"
	"bithumb-rebalance-bot/internal/logging"
	"bithumb-rebalance-bot/internal/market"
	"bithumb-rebalance-bot/internal/rebalance"
)

const (
	defaultRESTBaseURL = "https://api.bithumb.com"
	defaultRESTTimeout = 10 * time.Second
	defaultEnvFile     = ".env"
)

// verify checks credentials and connectivity: it fetches live balances and
// the current price, prints the resulting valuation and the decision the
// engine would make, and never places an order.
func main() {
	configPath := flag.String("config", "", "optional config path for REST and rebalance settings")
	flag.Parse()

	if err := config.LoadEnv(defaultEnvFile); err != nil {
		fatal(err)
	}

	logCfg := config.LoggingConfig{Level: "warn"}
	baseURL := defaultRESTBaseURL
	timeout := defaultRESTTimeout
	rebalanceCfg := config.RebalanceConfig{
		Asset:            "BTC",
		CashCurrency:     "KRW",
		TargetRatio:      0.5,
		LowerThreshold:   0.4,
		UpperThreshold:   0.6,
		MinOrderNotional: 1000,
	}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		logCfg = cfg.Log
		baseURL = cfg.REST.BaseURL
		timeout = cfg.REST.Timeout
		rebalanceCfg = cfg.Rebalance
	}

	creds, err := app.CredentialsFromEnv()
	if err != nil {
		fatal(err)
	}
	signer, err := auth.NewSigner(creds)
	if err != nil {
		fatal(err)
	}

	log := logging.New(logCfg)
	defer func() { _ = log.Sync() }()

	restClient := rest.New(baseURL, timeout, signer, log)
	marketData := market.New(restClient, nil, rebalanceCfg.MarketCode(), 0, log)
	reader := account.New(restClient, marketData, rebalanceCfg.CashCurrency, rebalanceCfg.Asset, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	snap, err := reader.Snapshot(ctx)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("market:        %s\n", rebalanceCfg.MarketCode())
	fmt.Printf("trade price:   %.0f %s\n", snap.AssetPrice, rebalanceCfg.CashCurrency)
	fmt.Printf("cash balance:  %.2f %s\n", snap.CashBalance, rebalanceCfg.CashCurrency)
	fmt.Printf("asset balance: %.8f %s\n", snap.AssetBalance, rebalanceCfg.Asset)
	fmt.Printf("asset value:   %.2f %s\n", snap.AssetValue, rebalanceCfg.CashCurrency)
	fmt.Printf("total value:   %.2f %s\n", snap.TotalValue, rebalanceCfg.CashCurrency)
	fmt.Printf("asset ratio:   %.4f\n", snap.AssetRatio)

	params := rebalance.Params{
		TargetRatio:      rebalanceCfg.TargetRatio,
		LowerThreshold:   rebalanceCfg.LowerThreshold,
		UpperThreshold:   rebalanceCfg.UpperThreshold,
		MinOrderNotional: rebalanceCfg.MinOrderNotional,
	}
	if err := params.Validate(); err != nil {
		fatal(err)
	}
	decision := rebalance.Decide(snap, params)
	switch decision.Action {
	case rebalance.ActionBuy:
		fmt.Printf("decision:      BUY %.0f %s (dry run, no order placed)\n", decision.CashAmount, rebalanceCfg.CashCurrency)
	case rebalance.ActionSell:
		fmt.Printf("decision:      SELL %.8f %s (dry run, no order placed)\n", decision.AssetAmount, rebalanceCfg.Asset)
	default:
		fmt.Printf("decision:      HOLD (%s)\n", decision.SkipReason)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
