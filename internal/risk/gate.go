package risk

import (
	"time"

	"tradeGate/internal/domain"
)

// Evaluate decides whether a new trade is currently permitted for the state.
// Rules are checked in order and the first failing rule wins:
// daily stop, loss streak stop, cooldown. It has no side effects.
func Evaluate(state domain.TraderRiskState, now time.Time) (bool, domain.ReasonCode) {
	if state.DailyPnL <= state.DailyPnLStop {
		return false, domain.ReasonDailyStopHit
	}

	if state.ConsecutiveLosses >= state.ConsecutiveLossStop {
		return false, domain.ReasonLossStreakStopHit
	}

	// A zero LastTradeAt means the identity never traded.
	if !state.LastTradeAt.IsZero() && now.Sub(state.LastTradeAt) < state.MinTradeInterval {
		return false, domain.ReasonCooldownActive
	}

	return true, domain.ReasonOK
}

// CheckConfidence filters proposals whose signal confidence is below the
// identity's minimum. It runs only after Evaluate allowed the attempt.
func CheckConfidence(state domain.TraderRiskState, confidence float64) (bool, domain.ReasonCode) {
	if confidence < state.MinConfidence {
		return false, domain.ReasonConfidenceTooLow
	}
	return true, domain.ReasonOK
}

// CooldownRemaining returns how long the identity must still wait, or zero.
func CooldownRemaining(state domain.TraderRiskState, now time.Time) time.Duration {
	if state.LastTradeAt.IsZero() {
		return 0
	}
	remaining := state.MinTradeInterval - now.Sub(state.LastTradeAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
