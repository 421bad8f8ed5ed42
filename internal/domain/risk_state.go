package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRiskParams is returned when risk parameters fail validation.
var ErrInvalidRiskParams = errors.New("invalid risk parameters")

// RiskParams holds the configurable part of a trader's risk state.
type RiskParams struct {
	RiskPerTrade        float64       // Fraction of balance risked per trade (e.g., 0.01 for 1%)
	MaxPositionSize     float64       // Upper bound for RiskPerTrade
	MinConfidence       float64       // Minimum signal confidence in [0,1]
	StopLossPct         float64       // Stop-loss offset as a fraction of entry price
	TakeProfitPct       float64       // Take-profit offset as a fraction of entry price
	MinTradeInterval    time.Duration // Cooldown between two trades
	DailyPnLStop        float64       // Negative fraction of balance that halts trading for the day
	ConsecutiveLossStop int           // Loss streak that halts trading
	Mode                ExecutionMode
}

// DefaultRiskParams returns the conservative defaults used for new identities.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		RiskPerTrade:        0.01,
		MaxPositionSize:     0.05,
		MinConfidence:       0.6,
		StopLossPct:         0.008,
		TakeProfitPct:       0.012,
		MinTradeInterval:    180 * time.Second,
		DailyPnLStop:        -0.015,
		ConsecutiveLossStop: 3,
		Mode:                ModeSimulated,
	}
}

// Validate checks the parameters and returns every violation at once.
func (p RiskParams) Validate() error {
	var errs []string

	if p.RiskPerTrade <= 0 || p.RiskPerTrade > 1 {
		errs = append(errs, "risk per trade must be in (0, 1]")
	}
	if p.MaxPositionSize <= 0 || p.MaxPositionSize > 1 {
		errs = append(errs, "max position size must be in (0, 1]")
	}
	if p.RiskPerTrade > p.MaxPositionSize {
		errs = append(errs, fmt.Sprintf("risk per trade %.4f exceeds max position size %.4f", p.RiskPerTrade, p.MaxPositionSize))
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		errs = append(errs, "min confidence must be in [0, 1]")
	}
	if p.StopLossPct <= 0 || p.StopLossPct >= 1 {
		errs = append(errs, "stop loss percentage must be in (0, 1)")
	}
	if p.TakeProfitPct <= 0 || p.TakeProfitPct >= 1 {
		errs = append(errs, "take profit percentage must be in (0, 1)")
	}
	if p.MinTradeInterval < 0 {
		errs = append(errs, "min trade interval cannot be negative")
	}
	if p.DailyPnLStop >= 0 {
		errs = append(errs, "daily PnL stop must be a negative fraction")
	}
	if p.ConsecutiveLossStop <= 0 {
		errs = append(errs, "consecutive loss stop must be positive")
	}
	if p.Mode != ModeSimulated && p.Mode != ModeLive {
		errs = append(errs, fmt.Sprintf("unknown execution mode %q", p.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRiskParams, strings.Join(errs, "; "))
	}
	return nil
}

// TraderRiskState is the rolling risk state of one trading identity.
// It is a value type: pipeline stages receive a copy and return a new one.
type TraderRiskState struct {
	Identity string
	RiskParams

	DailyPnL          float64   // Fraction of balance won or lost since the last rollover
	ConsecutiveLosses int       // Current losing streak
	LastTradeAt       time.Time // Zero until the first fill
	TotalTrades       int
	TotalPnL          float64 // Cumulative P&L in quote currency
	UpdatedAt         time.Time
}

// NewTraderRiskState creates a fresh state for an identity after validating params.
func NewTraderRiskState(identity string, params RiskParams) (TraderRiskState, error) {
	if strings.TrimSpace(identity) == "" {
		return TraderRiskState{}, fmt.Errorf("%w: identity must be set", ErrInvalidRiskParams)
	}
	if err := params.Validate(); err != nil {
		return TraderRiskState{}, err
	}
	return TraderRiskState{Identity: identity, RiskParams: params}, nil
}

// WithParams returns a copy of the state carrying new, validated parameters.
// Counters are preserved.
func (s TraderRiskState) WithParams(params RiskParams) (TraderRiskState, error) {
	if err := params.Validate(); err != nil {
		return s, err
	}
	s.RiskParams = params
	return s, nil
}

// ResetDaily clears the daily counters. Only the daily rollover collaborator calls this.
func (s TraderRiskState) ResetDaily() TraderRiskState {
	s.DailyPnL = 0
	s.ConsecutiveLosses = 0
	return s
}
