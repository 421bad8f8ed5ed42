package risk

import "tradeGate/internal/domain"

// SizeNotional converts a balance and risk fraction into an order notional.
// riskFraction is bounded by MaxPositionSize when the state is validated, not here.
func SizeNotional(balance, riskFraction float64) float64 {
	return balance * riskFraction
}

// BaseSize converts a notional into a base-asset quantity at price.
// Returns 0 for a non-positive price.
func BaseSize(notional, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return notional / price
}

// DeriveProtectiveLevels returns the stop-loss and take-profit prices for an entry.
func DeriveProtectiveLevels(price float64, side domain.OrderSide, stopLossPct, takeProfitPct float64) (stopLoss, takeProfit float64) {
	if side == domain.Sell {
		return price * (1 + stopLossPct), price * (1 - takeProfitPct)
	}
	return price * (1 - stopLossPct), price * (1 + takeProfitPct)
}
