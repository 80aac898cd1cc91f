package interfaces

import (
	"context"

	"market-relay/src/models"
)

// -----------------------------------------------------------------------------
// ITransport is one connected data-stream peer as seen by the broadcaster.
// -----------------------------------------------------------------------------

type ITransport interface {
	// Send queues msg without blocking. A full queue drops msg and returns an error.
	Send(msg models.MMessage) error

	// Close tears down the peer. Safe to call more than once.
	Close() error

	RemoteAddr() string
}

// -----------------------------------------------------------------------------
// IQuoteFetcher resolves the current quotes for a channel's symbol set.
// -----------------------------------------------------------------------------

type IQuoteFetcher interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]models.MQuote
}
