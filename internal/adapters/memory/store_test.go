package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"
)

var _ ports.TraderStateRepository = (*StateStore)(nil)

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()

	got, err := store.LoadState(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SaveState(ctx, domain.TraderRiskState{Identity: "b", TotalTrades: 2}))
	require.NoError(t, store.SaveState(ctx, domain.TraderRiskState{Identity: "a", TotalTrades: 1}))

	got, err = store.LoadState(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.TotalTrades)

	got.TotalTrades = 99
	again, err := store.LoadState(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, again.TotalTrades, "callers receive copies")

	states, err := store.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].Identity)
	assert.Equal(t, "b", states[1].Identity)
}
