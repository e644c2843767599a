package domain

import (
	"context"
	"time"
)

// Ledger is the call interface of the on-chain market contract. The
// contract's internal accounting is out of scope; every method maps 1:1 to a
// contract call. Write methods return the transaction hash.
type Ledger interface {
	// NextMarketID returns the id the next newMarket call will assign.
	NextMarketID(ctx context.Context) (uint64, error)

	// GetMarket reads the current on-chain state of a market.
	GetMarket(ctx context.Context, id uint64) (Market, error)

	// PendingNonce returns the funding account's pending transaction count,
	// used as the base for explicit nonce assignment during creation.
	PendingNonce(ctx context.Context) (uint64, error)

	// CreateMarket submits newMarket(question, duration) with an explicit
	// nonce. A nonce conflict is reported as ErrNonceConflict.
	CreateMarket(ctx context.Context, question string, duration time.Duration, nonce uint64) (string, error)

	// RequestSettlement moves an Open market to SettlementRequested.
	RequestSettlement(ctx context.Context, id uint64) (string, error)

	// OnReport delivers an encoded settlement report. The metadata slot is
	// reserved for future multi-party signing and is empty today.
	OnReport(ctx context.Context, metadata []byte, report []byte) (string, error)

	// SubmitReport settles a market with the raw report fields.
	SubmitReport(ctx context.Context, id uint64, outcomeCode uint8, confidenceBps uint16, responseID string) (string, error)

	// SettleManually is the admin escape hatch out of NeedsManual.
	SettleManually(ctx context.Context, id uint64, outcomeCode uint8) (string, error)
}
