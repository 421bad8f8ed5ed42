package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeGate/internal/domain"
)

func newState(t *testing.T) domain.TraderRiskState {
	t.Helper()
	state, err := domain.NewTraderRiskState("trader-1", domain.DefaultRiskParams())
	require.NoError(t, err)
	return state
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mutate      func(s *domain.TraderRiskState)
		wantAllowed bool
		wantReason  domain.ReasonCode
	}{
		{
			name:        "fresh identity is allowed",
			mutate:      func(s *domain.TraderRiskState) {},
			wantAllowed: true,
			wantReason:  domain.ReasonOK,
		},
		{
			name: "daily stop hit regardless of other fields",
			mutate: func(s *domain.TraderRiskState) {
				s.DailyPnL = -0.02
				s.DailyPnLStop = -0.015
				s.ConsecutiveLosses = 5
				s.LastTradeAt = now.Add(-time.Second)
			},
			wantAllowed: false,
			wantReason:  domain.ReasonDailyStopHit,
		},
		{
			name: "daily stop hit exactly at threshold",
			mutate: func(s *domain.TraderRiskState) {
				s.DailyPnL = -0.015
				s.DailyPnLStop = -0.015
			},
			wantAllowed: false,
			wantReason:  domain.ReasonDailyStopHit,
		},
		{
			name: "loss streak takes precedence over passing cooldown",
			mutate: func(s *domain.TraderRiskState) {
				s.ConsecutiveLosses = 3
				s.ConsecutiveLossStop = 3
				s.LastTradeAt = now.Add(-time.Hour)
			},
			wantAllowed: false,
			wantReason:  domain.ReasonLossStreakStopHit,
		},
		{
			name: "loss streak takes precedence over active cooldown",
			mutate: func(s *domain.TraderRiskState) {
				s.ConsecutiveLosses = 4
				s.ConsecutiveLossStop = 3
				s.LastTradeAt = now.Add(-time.Second)
			},
			wantAllowed: false,
			wantReason:  domain.ReasonLossStreakStopHit,
		},
		{
			name: "cooldown active",
			mutate: func(s *domain.TraderRiskState) {
				s.MinTradeInterval = 180 * time.Second
				s.LastTradeAt = now.Add(-179 * time.Second)
			},
			wantAllowed: false,
			wantReason:  domain.ReasonCooldownActive,
		},
		{
			name: "cooldown elapsed exactly",
			mutate: func(s *domain.TraderRiskState) {
				s.MinTradeInterval = 180 * time.Second
				s.LastTradeAt = now.Add(-180 * time.Second)
			},
			wantAllowed: true,
			wantReason:  domain.ReasonOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newState(t)
			tt.mutate(&state)

			allowed, reason := Evaluate(state, now)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestEvaluateHasNoSideEffects(t *testing.T) {
	now := time.Now()
	state := newState(t)
	state.LastTradeAt = now.Add(-10 * time.Second)
	before := state

	for i := 0; i < 3; i++ {
		allowed, reason := Evaluate(state, now)
		assert.False(t, allowed)
		assert.Equal(t, domain.ReasonCooldownActive, reason)
	}
	assert.Equal(t, before, state)
}

func TestCheckConfidence(t *testing.T) {
	state := newState(t)
	state.MinConfidence = 0.6

	ok, reason := CheckConfidence(state, 0.59)
	assert.False(t, ok)
	assert.Equal(t, domain.ReasonConfidenceTooLow, reason)

	ok, reason = CheckConfidence(state, 0.6)
	assert.True(t, ok)
	assert.Equal(t, domain.ReasonOK, reason)
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Now()
	state := newState(t)
	state.MinTradeInterval = time.Minute

	assert.Zero(t, CooldownRemaining(state, now))

	state.LastTradeAt = now.Add(-20 * time.Second)
	assert.Equal(t, 40*time.Second, CooldownRemaining(state, now))

	state.LastTradeAt = now.Add(-2 * time.Minute)
	assert.Zero(t, CooldownRemaining(state, now))
}
