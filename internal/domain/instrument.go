package domain

// InstrumentMeta is the subset of exchange instrument metadata the
// action handlers need to round order sizes.
type InstrumentMeta struct {
	Symbol   string
	LotSize  float64 // order size step
	MinSize  float64 // smallest accepted order size
	TickSize float64
}
