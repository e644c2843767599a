package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// adminConfidenceBps is the fixed confidence an admin override carries.
const adminConfidenceBps uint16 = 10000

// Admin forces a settlement outcome past the automated paths. The entry call
// depends on the market's current state; Settled is terminal and rejected.
type Admin struct {
	ledger domain.Ledger
	audit  domain.SettlementStore
	logger *slog.Logger
}

func NewAdmin(l domain.Ledger, audit domain.SettlementStore, logger *slog.Logger) *Admin {
	return &Admin{
		ledger: l,
		audit:  audit,
		logger: logger.With(slog.String("component", "admin")),
	}
}

// Override settles the market with the given outcome. source documents the
// evidence behind the decision and is mandatory.
func (a *Admin) Override(ctx context.Context, marketID uint64, outcome domain.Outcome, source string) (domain.SettlementRecord, error) {
	if source == "" {
		return domain.SettlementRecord{}, errors.New("settle: admin override requires an evidence source")
	}
	if outcome == domain.OutcomeNone {
		return domain.SettlementRecord{}, errors.New("settle: admin override requires a concrete outcome")
	}

	market, err := a.ledger.GetMarket(ctx, marketID)
	if err != nil {
		return domain.SettlementRecord{}, fmt.Errorf("settle: load market %d: %w", marketID, err)
	}

	responseID := uuid.NewString()
	var txHash string

	switch market.Status {
	case domain.StatusSettled:
		return domain.SettlementRecord{}, fmt.Errorf("settle: market %d: %w", marketID, domain.ErrAlreadySettled)

	case domain.StatusNeedsManual:
		txHash, err = a.ledger.SettleManually(ctx, marketID, outcome.Code())
		if err != nil {
			return domain.SettlementRecord{}, fmt.Errorf("settle: manual settle market %d: %w", marketID, err)
		}

	case domain.StatusOpen:
		if _, err = a.ledger.RequestSettlement(ctx, marketID); err != nil {
			return domain.SettlementRecord{}, fmt.Errorf("settle: request settlement for market %d: %w", marketID, err)
		}
		txHash, err = a.submitReport(ctx, marketID, outcome, responseID)
		if err != nil {
			return domain.SettlementRecord{}, err
		}

	case domain.StatusSettlementRequested:
		txHash, err = a.submitReport(ctx, marketID, outcome, responseID)
		if err != nil {
			return domain.SettlementRecord{}, err
		}

	default:
		return domain.SettlementRecord{}, fmt.Errorf("settle: market %d in unknown status %d", marketID, market.Status)
	}

	record := domain.SettlementRecord{
		MarketID:      marketID,
		Question:      market.Question,
		Outcome:       outcome,
		ConfidenceBps: adminConfidenceBps,
		ResponseID:    responseID,
		TxHash:        txHash,
		Method:        domain.MethodAdmin,
		AdminOverride: true,
		AdminSource:   source,
	}

	if a.audit != nil {
		if err := a.audit.Upsert(ctx, record); err != nil {
			a.logger.WarnContext(ctx, "audit upsert failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	a.logger.InfoContext(ctx, "admin override applied",
		slog.Uint64("market_id", marketID),
		slog.String("outcome", outcome.String()),
		slog.String("source", source),
	)
	return record, nil
}

func (a *Admin) submitReport(ctx context.Context, marketID uint64, outcome domain.Outcome, responseID string) (string, error) {
	txHash, err := a.ledger.SubmitReport(ctx, marketID, outcome.Code(), adminConfidenceBps, responseID)
	if err != nil {
		return "", fmt.Errorf("settle: submit admin report for market %d: %w", marketID, err)
	}
	return txHash, nil
}
