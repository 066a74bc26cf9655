package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CyclesRun        Counter
	CyclesSkipped    Counter
	SnapshotFailures Counter
	OrdersPlaced     Counter
	OrdersFailed     Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CyclesRun:        n,
		CyclesSkipped:    n,
		SnapshotFailures: n,
		OrdersPlaced:     n,
		OrdersFailed:     n,
	}
}
