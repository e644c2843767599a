// Package settle owns the per-market settlement control flow: the
// orchestrator state machine, the submission pipeline, creation with
// nonce retry, and the admin override path.
package settle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/ledger"
)

// ClampBps bounds a confidence value into [0, 10000].
func ClampBps(bps uint16) uint16 {
	if bps > 10000 {
		return 10000
	}
	return bps
}

// Submitter encodes resolution results into settlement reports and delivers
// them through the ledger's report entrypoint. One transaction per attempt;
// a failed submission is terminal for the invocation because re-entry from
// the status check is safe.
type Submitter struct {
	ledger domain.Ledger
	logger *slog.Logger
}

func NewSubmitter(l domain.Ledger, logger *slog.Logger) *Submitter {
	return &Submitter{
		ledger: l,
		logger: logger.With(slog.String("component", "submitter")),
	}
}

// Submit builds and delivers the report for a resolved market. The returned
// response id is a fresh opaque identifier used only for audit
// cross-referencing.
func (s *Submitter) Submit(ctx context.Context, marketID uint64, res domain.ResolutionResult) (txHash, responseID string, err error) {
	if res.Outcome == domain.OutcomeNone {
		return "", "", fmt.Errorf("settle: refusing to submit unset outcome for market %d", marketID)
	}

	responseID = uuid.NewString()
	report := domain.SettlementReport{
		MarketID:      marketID,
		OutcomeCode:   res.Outcome.Code(),
		ConfidenceBps: ClampBps(res.ConfidenceBps),
		ResponseID:    responseID,
	}

	encoded, err := ledger.EncodeReport(report)
	if err != nil {
		return "", "", err
	}

	// The metadata slot is reserved for multi-party signing and stays empty.
	txHash, err = s.ledger.OnReport(ctx, nil, encoded)
	if err != nil {
		return "", "", fmt.Errorf("settle: submit report for market %d: %w", marketID, err)
	}

	s.logger.InfoContext(ctx, "settlement report submitted",
		slog.Uint64("market_id", marketID),
		slog.String("outcome", res.Outcome.String()),
		slog.Int("confidence_bps", int(report.ConfidenceBps)),
		slog.String("response_id", responseID),
		slog.String("tx_hash", txHash),
	)
	return txHash, responseID, nil
}
