package rebalance

// Snapshot is one portfolio valuation, recomputed fresh every cycle and
// never cached across cycles.
type Snapshot struct {
	CashBalance  float64
	AssetBalance float64
	AssetPrice   float64
	AssetValue   float64
	TotalValue   float64
	AssetRatio   float64
}

// NewSnapshot derives the valuation fields. A zero total value yields a
// zero ratio rather than a division fault.
func NewSnapshot(cashBalance, assetBalance, assetPrice float64) Snapshot {
	assetValue := assetBalance * assetPrice
	totalValue := cashBalance + assetValue
	ratio := 0.0
	if totalValue > 0 {
		ratio = assetValue / totalValue
	}
	return Snapshot{
		CashBalance:  cashBalance,
		AssetBalance: assetBalance,
		AssetPrice:   assetPrice,
		AssetValue:   assetValue,
		TotalValue:   totalValue,
		AssetRatio:   ratio,
	}
}
