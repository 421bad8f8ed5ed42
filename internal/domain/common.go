package domain

import "strings"

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Valid reports whether the side is BUY or SELL.
func (s OrderSide) Valid() bool {
	return s == Buy || s == Sell
}

// ParseSide converts a user supplied string into an OrderSide.
func ParseSide(s string) (OrderSide, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, true
	case "SELL", "SHORT":
		return Sell, true
	default:
		return "", false
	}
}

// ExecutionMode selects between simulated fills and live submission.
type ExecutionMode string

const (
	ModeSimulated ExecutionMode = "SIMULATED"
	ModeLive      ExecutionMode = "LIVE"
)

// ParseMode resolves a mode string. Only an explicit "LIVE" yields ModeLive;
// empty, unknown or malformed values always resolve to ModeSimulated.
func ParseMode(s string) ExecutionMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeLive)) {
		return ModeLive
	}
	return ModeSimulated
}

// ReasonCode explains a risk gate decision.
type ReasonCode string

const (
	ReasonOK                ReasonCode = "OK"
	ReasonDailyStopHit      ReasonCode = "DAILY_STOP_HIT"
	ReasonLossStreakStopHit ReasonCode = "LOSS_STREAK_STOP_HIT"
	ReasonCooldownActive    ReasonCode = "COOLDOWN_ACTIVE"
	ReasonConfidenceTooLow  ReasonCode = "CONFIDENCE_TOO_LOW"
)
