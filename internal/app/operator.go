package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bithumb-rebalance-bot/internal/alerts"
	"bithumb-rebalance-bot/internal/state"

	"go.uber.org/zap"
)

const operatorOffsetKey = "telegram:update_offset"

// runOperator polls Telegram for operator commands. The update offset is
// persisted so a restart does not replay already-handled commands.
func (a *App) runOperator(ctx context.Context) {
	offset := a.loadOperatorOffset(ctx)
	ticker := time.NewTicker(a.cfg.Telegram.OperatorPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		updates, err := a.alerts.GetUpdates(ctx, offset)
		if err != nil {
			a.log.Warn("operator poll failed", zap.Error(err))
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil {
				continue
			}
			if !a.operatorAllowed(update) {
				a.log.Warn("operator command from unauthorized user",
					zap.String("text", update.Message.Text))
				continue
			}
			a.handleOperatorCommand(ctx, strings.TrimSpace(update.Message.Text))
		}
		if len(updates) > 0 {
			a.saveOperatorOffset(ctx, offset)
		}
	}
}

func (a *App) operatorAllowed(update alerts.Update) bool {
	allowed := a.cfg.Telegram.OperatorAllowedIDs
	if len(allowed) == 0 {
		return true
	}
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	for _, id := range allowed {
		if id == update.Message.From.ID {
			return true
		}
	}
	return false
}

func (a *App) handleOperatorCommand(ctx context.Context, command string) {
	switch command {
	case "/status":
		a.notify(ctx, a.statusMessage(ctx))
	case "/pause":
		a.paused.Store(true)
		a.log.Info("rebalancing paused by operator")
		a.notify(ctx, "Rebalancing paused. Scheduled cycles will be skipped until /resume.")
	case "/resume":
		a.paused.Store(false)
		a.log.Info("rebalancing resumed by operator")
		a.notify(ctx, "Rebalancing resumed.")
	case "/help":
		a.notify(ctx, "Commands: /status /pause /resume /help")
	default:
		if strings.HasPrefix(command, "/") {
			a.notify(ctx, fmt.Sprintf("Unknown command %s. Try /help.", command))
		}
	}
}

func (a *App) statusMessage(ctx context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", a.cfg.Rebalance.MarketCode())
	fmt.Fprintf(&b, "State: %s\n", a.machine.Current())
	fmt.Fprintf(&b, "Paused: %v\n", a.paused.Load())
	if last, ok, err := state.LoadCycleSnapshot(ctx, a.store); err == nil && ok {
		fmt.Fprintf(&b, "Last cycle: %s", last.Action)
		if last.SkipReason != "" {
			fmt.Fprintf(&b, " (%s)", last.SkipReason)
		}
		fmt.Fprintf(&b, "\nLast ratio: %.4f\n", last.AssetRatio)
		fmt.Fprintf(&b, "Last total: %.0f %s\n", last.TotalValue, a.cfg.Rebalance.CashCurrency)
		fmt.Fprintf(&b, "Updated: %s", time.UnixMilli(last.UpdatedAtMS).Format(time.RFC3339))
	} else {
		b.WriteString("No cycle recorded yet.")
	}
	return b.String()
}

func (a *App) loadOperatorOffset(ctx context.Context) int64 {
	raw, ok, err := a.store.Get(ctx, operatorOffsetKey)
	if err != nil || !ok {
		return 0
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return offset
}

func (a *App) saveOperatorOffset(ctx context.Context, offset int64) {
	if err := a.store.Set(ctx, operatorOffsetKey, strconv.FormatInt(offset, 10)); err != nil {
		a.log.Warn("operator offset save failed", zap.Error(err))
	}
}
