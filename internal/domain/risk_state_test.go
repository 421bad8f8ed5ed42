package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskParamsValidate(t *testing.T) {
	require.NoError(t, DefaultRiskParams().Validate())

	tests := []struct {
		name   string
		mutate func(p *RiskParams)
		want   string
	}{
		{"zero risk", func(p *RiskParams) { p.RiskPerTrade = 0 }, "risk per trade"},
		{"risk above max", func(p *RiskParams) { p.RiskPerTrade = 0.1 }, "exceeds max position size"},
		{"confidence above one", func(p *RiskParams) { p.MinConfidence = 1.2 }, "min confidence"},
		{"stop loss of one", func(p *RiskParams) { p.StopLossPct = 1 }, "stop loss percentage"},
		{"negative take profit", func(p *RiskParams) { p.TakeProfitPct = -0.1 }, "take profit percentage"},
		{"negative interval", func(p *RiskParams) { p.MinTradeInterval = -time.Second }, "min trade interval"},
		{"positive daily stop", func(p *RiskParams) { p.DailyPnLStop = 0.01 }, "daily PnL stop"},
		{"zero loss stop", func(p *RiskParams) { p.ConsecutiveLossStop = 0 }, "consecutive loss stop"},
		{"unknown mode", func(p *RiskParams) { p.Mode = "PAPER" }, "unknown execution mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultRiskParams()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRiskParams)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRiskParamsValidateReportsAllViolations(t *testing.T) {
	p := DefaultRiskParams()
	p.StopLossPct = 0
	p.ConsecutiveLossStop = -1

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop loss percentage")
	assert.Contains(t, err.Error(), "consecutive loss stop")
}

func TestNewTraderRiskState(t *testing.T) {
	st, err := NewTraderRiskState("alice", DefaultRiskParams())
	require.NoError(t, err)
	assert.Equal(t, "alice", st.Identity)
	assert.Equal(t, ModeSimulated, st.Mode)
	assert.Zero(t, st.TotalTrades)
	assert.True(t, st.LastTradeAt.IsZero())

	_, err = NewTraderRiskState("  ", DefaultRiskParams())
	assert.ErrorIs(t, err, ErrInvalidRiskParams)

	bad := DefaultRiskParams()
	bad.RiskPerTrade = 2
	_, err = NewTraderRiskState("alice", bad)
	assert.ErrorIs(t, err, ErrInvalidRiskParams)
}

func TestWithParamsKeepsCounters(t *testing.T) {
	st, err := NewTraderRiskState("alice", DefaultRiskParams())
	require.NoError(t, err)
	st.TotalTrades = 4
	st.DailyPnL = -0.004
	st.ConsecutiveLosses = 2

	p := DefaultRiskParams()
	p.RiskPerTrade = 0.02
	updated, err := st.WithParams(p)
	require.NoError(t, err)
	assert.Equal(t, 0.02, updated.RiskPerTrade)
	assert.Equal(t, 4, updated.TotalTrades)
	assert.Equal(t, -0.004, updated.DailyPnL)
	assert.Equal(t, 2, updated.ConsecutiveLosses)

	p.StopLossPct = 0
	unchanged, err := st.WithParams(p)
	assert.Error(t, err)
	assert.Equal(t, st, unchanged)
}

func TestResetDaily(t *testing.T) {
	last := time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)
	st := TraderRiskState{
		Identity:          "alice",
		RiskParams:        DefaultRiskParams(),
		DailyPnL:          -0.02,
		ConsecutiveLosses: 3,
		LastTradeAt:       last,
		TotalTrades:       9,
		TotalPnL:          -12.5,
	}

	reset := st.ResetDaily()
	assert.Zero(t, reset.DailyPnL)
	assert.Zero(t, reset.ConsecutiveLosses)
	assert.Equal(t, last, reset.LastTradeAt)
	assert.Equal(t, 9, reset.TotalTrades)
	assert.Equal(t, -12.5, reset.TotalPnL)
	// The receiver is a copy.
	assert.Equal(t, 3, st.ConsecutiveLosses)
}
