package state

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const CycleSnapshotKey = "rebalance:last_cycle"

// CycleSnapshot records the outcome of the most recent decision cycle.
// It is written before the cycle returns so a restart can report what the
// engine last did; it is informational only and never feeds the next
// decision.
type CycleSnapshot struct {
	Action       string  `msgpack:"action"`
	SkipReason   string  `msgpack:"skip_reason,omitempty"`
	CashAmount   float64 `msgpack:"cash_amount"`
	AssetAmount  float64 `msgpack:"asset_amount"`
	OrderID      string  `msgpack:"order_id,omitempty"`
	OrderError   string  `msgpack:"order_error,omitempty"`
	AssetPrice   float64 `msgpack:"asset_price"`
	CashBalance  float64 `msgpack:"cash_balance"`
	AssetBalance float64 `msgpack:"asset_balance"`
	AssetValue   float64 `msgpack:"asset_value"`
	TotalValue   float64 `msgpack:"total_value"`
	AssetRatio   float64 `msgpack:"asset_ratio"`
	UpdatedAtMS  int64   `msgpack:"updated_at_ms"`
}

func LoadCycleSnapshot(ctx context.Context, store Store) (CycleSnapshot, bool, error) {
	if store == nil {
		return CycleSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, CycleSnapshotKey)
	if err != nil {
		return CycleSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return CycleSnapshot{}, false, nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return CycleSnapshot{}, false, err
	}
	var snapshot CycleSnapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return CycleSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SaveCycleSnapshot(ctx context.Context, store Store, snapshot CycleSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, CycleSnapshotKey, base64.StdEncoding.EncodeToString(payload))
}
