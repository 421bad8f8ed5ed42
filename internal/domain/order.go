package domain

// AssetSpec describes the venue's numeric constraints for a symbol.
type AssetSpec struct {
	Symbol       string
	TickSize     string // Smallest price increment as published by the venue (e.g., "0.5")
	SizeDecimals int    // Decimal places accepted for quantity
}

// TradeProposal is what the strategy layer asks the core to execute.
type TradeProposal struct {
	Symbol     string
	Side       OrderSide
	Balance    float64 // Account balance in quote currency used for sizing
	Confidence float64 // Signal confidence in [0,1]
	ReduceOnly bool
}

// OrderRequest is the raw, unnormalized order derived from a proposal.
type OrderRequest struct {
	Symbol     string
	Side       OrderSide
	Size       float64
	Price      float64
	ReduceOnly bool
}

// BuilderInfo is the fee-share metadata attached to every live order.
type BuilderInfo struct {
	Address      string
	FeeTenthsBps int
}

// NormalizedOrder is an order aligned to the venue's tick and lot grid.
type NormalizedOrder struct {
	Symbol     string
	Side       OrderSide
	Price      float64
	Size       float64
	ReduceOnly bool
	Builder    BuilderInfo
	Degraded   bool // True when asset metadata was unavailable and values were left unrounded
}

// IsBuy reports whether the order buys.
func (o NormalizedOrder) IsBuy() bool {
	return o.Side == Buy
}
