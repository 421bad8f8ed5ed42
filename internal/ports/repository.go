package ports

import (
	"context"

	"tradeGate/internal/domain"
)

// TraderStateRepository stores the risk state of each trading identity.
type TraderStateRepository interface {
	// LoadState retrieves the state for an identity.
	// Returns nil, nil if the identity has no stored state yet.
	LoadState(ctx context.Context, identity string) (*domain.TraderRiskState, error)
	// SaveState inserts or replaces the state for its identity.
	SaveState(ctx context.Context, state domain.TraderRiskState) error
	// ListStates returns every stored state ordered by identity.
	ListStates(ctx context.Context) ([]domain.TraderRiskState, error)
}

// AttemptRecorder receives the record emitted after each dispatched attempt.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, rec domain.AttemptRecord) error
}
