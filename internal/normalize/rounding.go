// Package normalize aligns order prices and sizes to a venue's tick and lot grid.
//
// All rounding is done in decimal arithmetic and ties are rounded half away
// from zero. Every function is total: invalid input is returned unchanged
// because an unrounded order is preferred over refusing to trade.
package normalize

import (
	"math"

	"github.com/shopspring/decimal"
)

// maxSizeDecimals caps the precision a venue can request.
const maxSizeDecimals = 16

// RoundPrice rounds price to the nearest multiple of tickSize.
// A non-positive tick size means metadata is unavailable and price is returned as is.
func RoundPrice(price, tickSize float64) float64 {
	if !isFinite(tickSize) || tickSize <= 0 {
		return price
	}
	return roundToTick(price, decimal.NewFromFloat(tickSize))
}

// RoundSize rounds size to the given number of decimal places.
// decimals <= 0 rounds to the nearest integer. Non-finite or negative sizes are returned as is.
func RoundSize(size float64, decimals int) float64 {
	if !isFinite(size) || size < 0 {
		return size
	}
	if decimals < 0 {
		decimals = 0
	}
	if decimals > maxSizeDecimals {
		decimals = maxSizeDecimals
	}
	return decimal.NewFromFloat(size).Round(int32(decimals)).InexactFloat64()
}

func roundToTick(price float64, tick decimal.Decimal) float64 {
	if !isFinite(price) || price < 0 || !tick.IsPositive() {
		return price
	}
	steps := decimal.NewFromFloat(price).DivRound(tick, 16).Round(0)
	return steps.Mul(tick).InexactFloat64()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
