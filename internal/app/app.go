package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"bithumb-rebalance-bot/internal/account"
	"bithumb-rebalance-bot/internal/alerts"
	"bithumb-rebalance-bot/internal/bithumb/auth"
	"bithumb-rebalance-bot/internal/bithumb/rest"
	"bithumb-rebalance-bot/internal/bithumb/ws"
	"bithumb-rebalance-bot/internal/config"
	"bithumb-rebalance-bot/internal/exec"
	"bithumb-rebalance-bot/internal/history"
	"bithumb-rebalance-bot/internal/market"
	"bithumb-rebalance-bot/internal/metrics"
	"bithumb-rebalance-bot/internal/rebalance"
	"bithumb-rebalance-bot/internal/state"
	"bithumb-rebalance-bot/internal/state/sqlite"
	"bithumb-rebalance-bot/internal/timescale"

	"go.uber.org/zap"
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     state.Store
	history   *history.Store
	timescale *timescale.Writer
	rest      *rest.Client
	market    *market.MarketData
	account   *account.Reader
	executor  *exec.Executor
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    *alerts.Telegram
	machine   *rebalance.StateMachine
	params    rebalance.Params
	paused    atomic.Bool
}

// CredentialsFromEnv reads the exchange API keys from the environment.
func CredentialsFromEnv() (auth.Credentials, error) {
	creds := auth.Credentials{
		AccessKey: strings.TrimSpace(os.Getenv("BITHUMB_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("BITHUMB_SECRET_KEY")),
	}
	if creds.AccessKey == "" {
		return auth.Credentials{}, errors.New("BITHUMB_ACCESS_KEY is required")
	}
	if creds.SecretKey == "" {
		return auth.Credentials{}, errors.New("BITHUMB_SECRET_KEY is required")
	}
	return creds, nil
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	creds, err := CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	signer, err := auth.NewSigner(creds)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.HistoryPath), 0o755); err != nil {
		_ = store.Close()
		return nil, err
	}
	historyStore, err := history.New(cfg.State.HistoryPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	tsWriter, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = store.Close()
		_ = historyStore.Close()
		return nil, err
	}

	restClient := rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, signer, log)
	var wsClient *ws.Client
	if cfg.WS.Enabled {
		wsClient = ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	}
	marketData := market.New(restClient, wsClient, cfg.Rebalance.MarketCode(), cfg.WS.MaxPriceAge, log)
	accountReader := account.New(restClient, marketData, cfg.Rebalance.CashCurrency, cfg.Rebalance.Asset, log)
	executor := exec.New(restClient, marketData, cfg.Rebalance.MarketCode(), cfg.Rebalance.FeeRate, log)

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	params := rebalance.Params{
		TargetRatio:      cfg.Rebalance.TargetRatio,
		LowerThreshold:   cfg.Rebalance.LowerThreshold,
		UpperThreshold:   cfg.Rebalance.UpperThreshold,
		MinOrderNotional: cfg.Rebalance.MinOrderNotional,
	}
	if err := params.Validate(); err != nil {
		_ = store.Close()
		_ = historyStore.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		history:   historyStore,
		timescale: tsWriter,
		rest:      restClient,
		market:    marketData,
		account:   accountReader,
		executor:  executor,
		metrics:   m,
		prom:      prom,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		machine:   rebalance.NewStateMachine(),
		params:    params,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.history.Close()
	defer a.timescale.Close()

	if last, ok, err := state.LoadCycleSnapshot(ctx, a.store); err != nil {
		a.log.Warn("last cycle snapshot load failed", zap.Error(err))
	} else if ok {
		a.log.Info("last cycle restored",
			zap.String("action", last.Action),
			zap.String("skip_reason", last.SkipReason),
			zap.Float64("asset_ratio", last.AssetRatio),
			zap.Int64("updated_at_ms", last.UpdatedAtMS),
		)
	}

	a.timescale.Start(ctx)
	if a.cfg.WS.Enabled {
		if err := a.market.Start(ctx); err != nil {
			a.log.Warn("ticker stream start failed, using rest prices", zap.Error(err))
		}
	}
	if a.prom != nil {
		go a.serveMetrics(ctx)
	}
	if a.cfg.Telegram.OperatorEnabled && a.alerts.Enabled() {
		go a.runOperator(ctx)
	}

	if err := a.tick(ctx); err != nil {
		a.log.Warn("rebalance tick failed", zap.Error(err))
	}
	a.recordPerformance(ctx)

	ticker := time.NewTicker(a.cfg.Rebalance.CheckInterval)
	defer ticker.Stop()
	record := time.NewTimer(time.Until(nextDailyTrigger(time.Now(), a.cfg.Rebalance.RecordTime)))
	defer record.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.tick(ctx); err != nil {
				a.log.Warn("rebalance tick failed", zap.Error(err))
			}
		case <-record.C:
			a.recordPerformance(ctx)
			record.Reset(time.Until(nextDailyTrigger(time.Now(), a.cfg.Rebalance.RecordTime)))
		}
	}
}

// tick runs one full decision cycle: snapshot, decide, dispatch, persist.
// A failed snapshot aborts the cycle without trading; the next scheduled
// cycle starts from fresh state.
func (a *App) tick(ctx context.Context) error {
	if a.paused.Load() {
		a.log.Info("rebalance paused, skipping cycle")
		return nil
	}
	snap, err := a.account.Snapshot(ctx)
	if err != nil {
		a.metrics.SnapshotFailures.Inc()
		return err
	}
	a.machine.Apply(rebalance.EventEvaluate)
	decision := rebalance.Decide(snap, a.params)
	a.metrics.CyclesRun.Inc()
	a.log.Info("cycle evaluated",
		zap.Float64("asset_price", snap.AssetPrice),
		zap.Float64("cash_balance", snap.CashBalance),
		zap.Float64("asset_balance", snap.AssetBalance),
		zap.Float64("total_value", snap.TotalValue),
		zap.Float64("asset_ratio", snap.AssetRatio),
		zap.String("action", string(decision.Action)),
	)

	var result exec.OrderResult
	switch decision.Action {
	case rebalance.ActionBuy:
		a.machine.Apply(rebalance.EventBuy)
		result = a.executor.PlaceBuy(ctx, decision.CashAmount)
		a.countOrder(result)
		a.notify(ctx, fmt.Sprintf("BUY %s: %.0f %s (ratio %.4f)",
			a.cfg.Rebalance.MarketCode(), decision.CashAmount, a.cfg.Rebalance.CashCurrency, snap.AssetRatio))
	case rebalance.ActionSell:
		a.machine.Apply(rebalance.EventSell)
		result = a.executor.PlaceSell(ctx, decision.AssetAmount)
		a.countOrder(result)
		a.notify(ctx, fmt.Sprintf("SELL %s: %.8f %s (ratio %.4f)",
			a.cfg.Rebalance.MarketCode(), decision.AssetAmount, a.cfg.Rebalance.Asset, snap.AssetRatio))
	default:
		a.machine.Apply(rebalance.EventSkip)
		a.metrics.CyclesSkipped.Inc()
		a.log.Info("cycle skipped", zap.String("reason", string(decision.SkipReason)))
	}
	a.machine.Apply(rebalance.EventDone)

	cycle := state.CycleSnapshot{
		Action:       string(decision.Action),
		SkipReason:   string(decision.SkipReason),
		CashAmount:   decision.CashAmount,
		AssetAmount:  decision.AssetAmount,
		OrderID:      result.OrderID,
		OrderError:   result.ErrorDetail,
		AssetPrice:   snap.AssetPrice,
		CashBalance:  snap.CashBalance,
		AssetBalance: snap.AssetBalance,
		AssetValue:   snap.AssetValue,
		TotalValue:   snap.TotalValue,
		AssetRatio:   snap.AssetRatio,
		UpdatedAtMS:  time.Now().UnixMilli(),
	}
	if err := state.SaveCycleSnapshot(ctx, a.store, cycle); err != nil {
		a.log.Warn("cycle snapshot save failed", zap.Error(err))
	}
	a.timescale.Enqueue(timescale.CycleRow{
		Time:        time.Now(),
		Action:      string(decision.Action),
		SkipReason:  string(decision.SkipReason),
		OrderID:     result.OrderID,
		AssetPrice:  snap.AssetPrice,
		CashBalance: snap.CashBalance,
		AssetAmount: snap.AssetBalance,
		AssetValue:  snap.AssetValue,
		TotalValue:  snap.TotalValue,
		AssetRatio:  snap.AssetRatio,
	})
	return nil
}

func (a *App) countOrder(result exec.OrderResult) {
	if result.Success {
		a.metrics.OrdersPlaced.Inc()
	} else {
		a.metrics.OrdersFailed.Inc()
	}
}

func (a *App) notify(ctx context.Context, message string) {
	if err := a.alerts.Send(ctx, message); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
}

func (a *App) recordPerformance(ctx context.Context) {
	snap, err := a.account.Snapshot(ctx)
	if err != nil {
		a.log.Warn("performance record failed", zap.Error(err))
		return
	}
	if err := a.history.Append(ctx, time.Now(), snap); err != nil {
		a.log.Warn("performance append failed", zap.Error(err))
		return
	}
	a.log.Info("performance recorded",
		zap.Float64("total_value", snap.TotalValue),
		zap.Float64("asset_ratio", snap.AssetRatio),
	)
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Warn("metrics server failed", zap.Error(err))
	}
}

// nextDailyTrigger returns the next wall-clock occurrence of recordTime
// (HH:MM, local time) strictly after now.
func nextDailyTrigger(now time.Time, recordTime string) time.Time {
	parsed, err := time.Parse("15:04", recordTime)
	if err != nil {
		return now.Add(24 * time.Hour)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
