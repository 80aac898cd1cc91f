package interfaces

import (
	"context"

	"market-relay/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotStore keeps the latest published quote per channel and symbol.
// -----------------------------------------------------------------------------

type ISnapshotStore interface {

	// Initialize sets up the schema or connection.
	Initialize(ctx context.Context) error

	// SaveQuotes upserts quotes for a channel.
	SaveQuotes(ctx context.Context, channel models.Channel, quotes []models.MQuote) error

	// LoadLatest returns every stored quote for a channel sorted by symbol.
	LoadLatest(ctx context.Context, channel models.Channel) ([]models.MQuote, error)

	// Close releases the connection
	Close() error
}
