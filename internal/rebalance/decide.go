package rebalance

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

type SkipReason string

const (
	SkipWithinBand  SkipReason = "WITHIN_BAND"
	SkipMinNotional SkipReason = "BELOW_MIN_NOTIONAL"
)

// Decision is the outcome of one evaluation. For buys CashAmount is the
// KRW notional to spend; for sells AssetAmount is the asset quantity to
// sell and CashAmount its notional at the snapshot price.
type Decision struct {
	Action      Action
	CashAmount  float64
	AssetAmount float64
	SkipReason  SkipReason
}

type Params struct {
	TargetRatio      float64
	LowerThreshold   float64
	UpperThreshold   float64
	MinOrderNotional float64
}

func (p Params) Validate() error {
	if !(0 < p.LowerThreshold && p.LowerThreshold < p.TargetRatio && p.TargetRatio < p.UpperThreshold && p.UpperThreshold < 1) {
		return fmt.Errorf("thresholds must satisfy 0 < lower (%v) < target (%v) < upper (%v) < 1",
			p.LowerThreshold, p.TargetRatio, p.UpperThreshold)
	}
	if p.MinOrderNotional < 0 {
		return errors.New("min order notional must not be negative")
	}
	return nil
}

// Decide maps a snapshot to at most one trade. The band check is strictly
// one-sided: a ratio exactly on a threshold trades nothing, and the
// snapshot is never re-evaluated within the same cycle.
func Decide(snap Snapshot, p Params) Decision {
	targetValue := snap.TotalValue * p.TargetRatio
	switch {
	case snap.AssetRatio < p.LowerThreshold:
		deficit := targetValue - snap.AssetValue
		if deficit <= p.MinOrderNotional {
			return Decision{Action: ActionNone, SkipReason: SkipMinNotional}
		}
		return Decision{Action: ActionBuy, CashAmount: deficit}
	case snap.AssetRatio > p.UpperThreshold:
		excessCash := snap.AssetValue - targetValue
		if excessCash <= p.MinOrderNotional || snap.AssetPrice <= 0 {
			return Decision{Action: ActionNone, SkipReason: SkipMinNotional}
		}
		return Decision{
			Action:      ActionSell,
			CashAmount:  excessCash,
			AssetAmount: excessCash / snap.AssetPrice,
		}
	default:
		return Decision{Action: ActionNone, SkipReason: SkipWithinBand}
	}
}
