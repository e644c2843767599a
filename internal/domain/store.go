package domain

import (
	"context"
	"time"
)

// SpecStore persists oracle specs keyed by market id. A spec is written once
// at market creation and read-only thereafter.
type SpecStore interface {
	Put(ctx context.Context, spec OracleSpec) error
	// Get returns ErrSpecNotFound when no spec exists for the market.
	Get(ctx context.Context, marketID uint64) (OracleSpec, error)
}

// SettlementStore is the audit sink. Upsert is idempotent per market: it
// updates the existing record when one exists, otherwise inserts a new one.
type SettlementStore interface {
	Upsert(ctx context.Context, rec SettlementRecord) error
	// GetByMarket returns ErrNotFound when no record exists for the market.
	GetByMarket(ctx context.Context, marketID uint64) (SettlementRecord, error)
	ListRecent(ctx context.Context, limit int) ([]SettlementRecord, error)
}

// SpecCache is a read-through cache in front of the SpecStore.
type SpecCache interface {
	Get(ctx context.Context, marketID uint64) (OracleSpec, bool, error)
	Set(ctx context.Context, spec OracleSpec) error
}

// LockManager provides best-effort distributed locks. The settlement
// orchestrator uses it only to avoid wasted reasoning-service calls during
// concurrent attempts; the ledger status field remains the correctness guard.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld if the lock is
	// already held by another party.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// EvidenceArchiver writes the full evidence blob for a settlement attempt to
// object storage and returns the object key for the audit record.
type EvidenceArchiver interface {
	Archive(ctx context.Context, marketID uint64, responseID string, evidence any) (string, error)
}
