package ports

import (
	"context"

	"tradeGate/internal/domain"
)

// MarketData provides the venue metadata and prices the core needs per attempt.
type MarketData interface {
	// GetAssetSpec returns tick size and size precision for a symbol.
	// Returns nil, nil when the venue publishes no metadata for the symbol.
	GetAssetSpec(ctx context.Context, symbol string) (*domain.AssetSpec, error)

	// GetReferencePrice returns the current reference price for a symbol.
	GetReferencePrice(ctx context.Context, symbol string) (float64, error)
}

// OrderTransport delivers an encoded order to the exchange order endpoint.
// It returns the raw reply body; any error means the outcome is unknown.
type OrderTransport interface {
	Submit(ctx context.Context, payload []byte) ([]byte, error)
}
