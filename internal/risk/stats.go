package risk

import (
	"time"

	"tradeGate/internal/domain"
)

// Apply folds the outcome of a completed attempt into the trader's state.
// Only fills move the cooldown clock and the streak counters; rejected,
// failed and ambiguous attempts return the state unchanged.
func Apply(state domain.TraderRiskState, result domain.AttemptResult, now time.Time) domain.TraderRiskState {
	switch r := result.(type) {
	case domain.Filled:
		state.LastTradeAt = now
		state.TotalTrades++
		state.DailyPnL += r.PnLFraction
		state.TotalPnL += r.PnL
		if r.PnL > 0 {
			state.ConsecutiveLosses = 0
		} else {
			state.ConsecutiveLosses++
		}
		state.UpdatedAt = now
		return state
	case domain.Rejected, domain.TransportError, domain.Ambiguous:
		return state
	default:
		return state
	}
}
