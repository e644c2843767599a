package domain

import "time"

// MarketStatus mirrors the status enum stored by the ledger contract.
// Transitions are monotonic except for the admin path out of NeedsManual.
type MarketStatus uint8

const (
	StatusOpen                MarketStatus = 0
	StatusSettlementRequested MarketStatus = 1
	StatusSettled             MarketStatus = 2
	StatusNeedsManual         MarketStatus = 3
)

// String returns the lowercase name used in logs and API responses.
func (s MarketStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusSettlementRequested:
		return "settlement_requested"
	case StatusSettled:
		return "settled"
	case StatusNeedsManual:
		return "needs_manual"
	default:
		return "unknown"
	}
}

// Outcome is the resolved answer for a binary market. The zero value means
// the market has not been resolved; it is never submitted to the ledger.
type Outcome uint8

const (
	OutcomeNone         Outcome = 0
	OutcomeNo           Outcome = 1
	OutcomeYes          Outcome = 2
	OutcomeInconclusive Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNo:
		return "no"
	case OutcomeYes:
		return "yes"
	case OutcomeInconclusive:
		return "inconclusive"
	default:
		return "none"
	}
}

// Code returns the numeric outcome code used by the ledger report layout
// (No:1, Yes:2, Inconclusive:3; 0 is reserved for "unset").
func (o Outcome) Code() uint8 {
	return uint8(o)
}

// Market is the on-chain view of a binary prediction market, read via the
// ledger's getMarket call.
type Market struct {
	ID            uint64
	Question      string
	OpenAt        time.Time
	CloseAt       time.Time
	Status        MarketStatus
	Outcome       Outcome
	ConfidenceBps uint16
	EvidenceRef   string
}
