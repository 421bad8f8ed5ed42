package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradeGate/internal/domain"
)

// Degradation names why an order left the normalizer unrounded.
type Degradation string

const (
	DegradationNone        Degradation = ""
	DegradationNoAssetSpec Degradation = "asset_spec_missing"
	DegradationBadTickSize Degradation = "tick_size_invalid"
)

// ParseTickSize converts the venue's string tick size into a decimal.
// It returns false for empty, malformed or non-positive values.
func ParseTickSize(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	tick, err := decimal.NewFromString(raw)
	if err != nil || !tick.IsPositive() {
		return decimal.Zero, false
	}
	return tick, true
}

// Normalize aligns req to the grid described by spec. It never fails:
// a nil spec leaves both values unrounded, an unusable tick size leaves
// the price unrounded while the size is still rounded.
func Normalize(req domain.OrderRequest, spec *domain.AssetSpec, builder domain.BuilderInfo) (domain.NormalizedOrder, Degradation) {
	order := domain.NormalizedOrder{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Price:      req.Price,
		Size:       req.Size,
		ReduceOnly: req.ReduceOnly,
		Builder:    builder,
	}

	if spec == nil {
		order.Degraded = true
		return order, DegradationNoAssetSpec
	}

	order.Size = RoundSize(req.Size, spec.SizeDecimals)

	tick, ok := ParseTickSize(spec.TickSize)
	if !ok {
		order.Degraded = true
		return order, DegradationBadTickSize
	}
	order.Price = roundToTick(req.Price, tick)
	return order, DegradationNone
}

// AlignLevel rounds a protective price level to the same tick grid as the order.
func AlignLevel(level float64, spec *domain.AssetSpec) float64 {
	if spec == nil {
		return level
	}
	tick, ok := ParseTickSize(spec.TickSize)
	if !ok {
		return level
	}
	return roundToTick(level, tick)
}
