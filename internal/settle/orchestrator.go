package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// mockConfidenceBps is the fixed confidence of the mock resolution path used
// when no reasoning service is configured.
const mockConfidenceBps uint16 = 9999

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 30 * time.Second
	defaultLockTTL      = 2 * time.Minute
)

// DiscreteResolver is the deterministic resolution path.
type DiscreteResolver interface {
	Resolve(ctx context.Context, marketID uint64) domain.ResolutionResult
}

// ContiguousResolver is the judge-panel resolution path.
type ContiguousResolver interface {
	Resolve(ctx context.Context, question string, consortium bool) domain.ResolutionResult
}

// Notifier receives a best-effort event after each settlement submission.
type Notifier interface {
	SettlementResolved(ctx context.Context, record domain.SettlementRecord) error
}

// OrchestratorDeps wires the orchestrator's collaborators. Ledger, Discrete,
// Submitter, Audit, and Logger are required; the rest are optional.
type OrchestratorDeps struct {
	Ledger     domain.Ledger
	Discrete   DiscreteResolver
	Contiguous ContiguousResolver // nil enables the mock path
	Submitter  *Submitter
	Audit      domain.SettlementStore
	Archiver   domain.EvidenceArchiver
	Locks      domain.LockManager
	Notifier   Notifier
	Logger     *slog.Logger

	// Zero values fall back to the package defaults.
	PollInterval time.Duration
	PollTimeout  time.Duration
	LockTTL      time.Duration
}

// Orchestrator runs the per-market settlement state machine:
// check status, request settlement if still open, try the discrete path,
// fall back to the contiguous path, then submit and audit. The ledger's own
// status field is the correctness backstop against double settlement; the
// advisory lock only avoids duplicate judge spend.
type Orchestrator struct {
	deps OrchestratorDeps
	log  *slog.Logger

	pollInterval time.Duration
	pollTimeout  time.Duration
	lockTTL      time.Duration
	randBool     func() bool
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		deps:         deps,
		log:          deps.Logger.With(slog.String("component", "orchestrator")),
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		lockTTL:      defaultLockTTL,
		randBool:     func() bool { return rand.IntN(2) == 0 },
	}
	if deps.PollInterval > 0 {
		o.pollInterval = deps.PollInterval
	}
	if deps.PollTimeout > 0 {
		o.pollTimeout = deps.PollTimeout
	}
	if deps.LockTTL > 0 {
		o.lockTTL = deps.LockTTL
	}
	return o
}

// Settle runs one settlement attempt for the market. consortium requests the
// full judge panel for the contiguous path; a clean discrete result always
// wins regardless.
func (o *Orchestrator) Settle(ctx context.Context, marketID uint64, consortium bool) (domain.SettlementRecord, error) {
	if o.deps.Locks != nil {
		release, err := o.deps.Locks.Acquire(ctx, fmt.Sprintf("settle:%d", marketID), o.lockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			return domain.SettlementRecord{}, fmt.Errorf("settle: market %d: %w", marketID, err)
		case err != nil:
			// Advisory only. Proceed without it.
			o.log.WarnContext(ctx, "settlement lock unavailable",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		default:
			defer release()
		}
	}

	market, err := o.deps.Ledger.GetMarket(ctx, marketID)
	if err != nil {
		return domain.SettlementRecord{}, fmt.Errorf("settle: load market %d: %w", marketID, err)
	}
	if market.Status == domain.StatusSettled {
		return domain.SettlementRecord{}, fmt.Errorf("settle: market %d: %w", marketID, domain.ErrAlreadySettled)
	}

	if market.Status == domain.StatusOpen {
		if _, err := o.deps.Ledger.RequestSettlement(ctx, marketID); err != nil {
			return domain.SettlementRecord{}, fmt.Errorf("settle: request settlement for market %d: %w", marketID, err)
		}
		if err := o.waitForRequested(ctx, marketID); err != nil {
			return domain.SettlementRecord{}, err
		}
	}

	res := o.deps.Discrete.Resolve(ctx, marketID)
	if res.IsFallback {
		res = o.resolveContiguous(ctx, market, res.FallbackReason, consortium)
	}

	txHash, responseID, err := o.deps.Submitter.Submit(ctx, marketID, res)
	if err != nil {
		return domain.SettlementRecord{}, err
	}

	record := domain.SettlementRecord{
		MarketID:      marketID,
		Question:      market.Question,
		Outcome:       res.Outcome,
		ConfidenceBps: ClampBps(res.ConfidenceBps),
		ResponseID:    responseID,
		TxHash:        txHash,
		Method:        res.Method,
		IsFallback:    res.IsFallback,
		Tally:         res.Tally,
	}

	if o.deps.Archiver != nil {
		key, err := o.deps.Archiver.Archive(ctx, marketID, responseID, evidencePayload(market, res))
		if err != nil {
			o.log.WarnContext(ctx, "evidence archive failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		} else {
			record.EvidenceKey = key
		}
	}

	if o.deps.Audit != nil {
		if err := o.deps.Audit.Upsert(ctx, record); err != nil {
			o.log.WarnContext(ctx, "audit upsert failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.SettlementResolved(ctx, record); err != nil {
			o.log.WarnContext(ctx, "settlement notification failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	return record, nil
}

// resolveContiguous runs the judge path, or the mock path when no reasoning
// service is wired. The result keeps the discrete fallback reason except for
// CONTIGUOUS_TYPE, which just means the question was never discrete.
func (o *Orchestrator) resolveContiguous(ctx context.Context, market domain.Market, reason domain.FallbackReason, consortium bool) domain.ResolutionResult {
	var res domain.ResolutionResult
	if o.deps.Contiguous == nil {
		outcome := domain.OutcomeNo
		if o.randBool() {
			outcome = domain.OutcomeYes
		}
		res = domain.ResolutionResult{
			Outcome:       outcome,
			ConfidenceBps: mockConfidenceBps,
			Method:        domain.MethodMock,
			Evidence:      "mock resolution: reasoning service not configured",
		}
	} else {
		res = o.deps.Contiguous.Resolve(ctx, market.Question, consortium)
	}

	if reason != domain.FallbackNone && reason != domain.FallbackContiguousType {
		res.IsFallback = true
		res.FallbackReason = reason
	}
	return res
}

// waitForRequested polls until the ledger confirms the status transition out
// of Open.
func (o *Orchestrator) waitForRequested(ctx context.Context, marketID uint64) error {
	deadline := time.Now().Add(o.pollTimeout)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		market, err := o.deps.Ledger.GetMarket(ctx, marketID)
		if err != nil {
			return fmt.Errorf("settle: poll market %d: %w", marketID, err)
		}
		if market.Status != domain.StatusOpen {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("settle: market %d did not leave Open within %s", marketID, o.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func evidencePayload(market domain.Market, res domain.ResolutionResult) map[string]any {
	return map[string]any{
		"marketId":       market.ID,
		"question":       market.Question,
		"outcome":        res.Outcome.String(),
		"confidenceBps":  res.ConfidenceBps,
		"method":         string(res.Method),
		"isFallback":     res.IsFallback,
		"fallbackReason": string(res.FallbackReason),
		"tally":          res.Tally,
		"trace":          res.Evidence,
	}
}
