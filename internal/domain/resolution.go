package domain

import "time"

// Method identifies which resolution path produced a result.
type Method string

const (
	MethodDiscrete   Method = "discrete"
	MethodConsortium Method = "consortium"
	MethodMock       Method = "mock"
	MethodAdmin      Method = "admin"
)

// FallbackReason codes the non-fatal reasons the discrete engine declines to
// resolve a market. They are observability data, not errors.
type FallbackReason string

const (
	FallbackNone              FallbackReason = ""
	FallbackSpecNotFound      FallbackReason = "SPEC_NOT_FOUND"
	FallbackContiguousType    FallbackReason = "CONTIGUOUS_TYPE"
	FallbackTeamSearchFailed  FallbackReason = "SPORTS_TEAM_SEARCH_FAILED"
	FallbackTeamNotFound      FallbackReason = "SPORTS_TEAM_NOT_FOUND"
	FallbackNoRecentGames     FallbackReason = "NO_RECENT_GAMES"
	FallbackAPIError          FallbackReason = "API_ERROR"
	FallbackExtractionError   FallbackReason = "EXTRACTION_ERROR"
	FallbackNoValue           FallbackReason = "NO_VALUE"
	FallbackUnknown           FallbackReason = "UNKNOWN_ERROR"
)

// VoteTally counts judge votes per option in one consensus round.
type VoteTally struct {
	Yes          int `json:"yes"`
	No           int `json:"no"`
	Inconclusive int `json:"inconclusive"`
}

// ConsensusVote is a single judge's answer. Votes are ephemeral; only the
// tally and one representative trace survive aggregation.
type ConsensusVote struct {
	JudgeIndex    int
	Outcome       Outcome
	ConfidenceBps uint16
	RawTrace      string
}

// ResolutionResult is the outcome of one settlement attempt, produced by the
// discrete engine, the consensus engine, or the admin path.
type ResolutionResult struct {
	Outcome        Outcome
	ConfidenceBps  uint16
	Method         Method
	Evidence       string
	IsFallback     bool
	FallbackReason FallbackReason
	Tally          VoteTally
}

// DiscreteFallback builds the typed non-result the discrete engine returns
// when it cannot resolve. It never escapes the engine as a Go error.
func DiscreteFallback(reason FallbackReason, evidence string) ResolutionResult {
	return ResolutionResult{
		Outcome:        OutcomeNone,
		Method:         MethodDiscrete,
		Evidence:       evidence,
		IsFallback:     true,
		FallbackReason: reason,
	}
}

// SettlementReport is the canonical fixed-layout payload submitted to the
// ledger. It is immutable once submitted.
type SettlementReport struct {
	MarketID      uint64
	OutcomeCode   uint8
	ConfidenceBps uint16
	ResponseID    string
}

// SettlementRecord is the audit-sink row for a market. At most one record
// exists per market; repeated settlement attempts update it in place.
type SettlementRecord struct {
	MarketID      uint64
	Question      string
	Outcome       Outcome
	ConfidenceBps uint16
	ResponseID    string
	TxHash        string
	Method        Method
	IsFallback    bool
	Tally         VoteTally
	EvidenceKey   string // object-store key of the archived evidence blob
	AdminOverride bool
	AdminSource   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
