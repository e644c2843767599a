package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/retry"
)

// SpecClassifier derives and persists an oracle spec for a freshly created
// market.
type SpecClassifier interface {
	Classify(ctx context.Context, marketID uint64, question string) (domain.OracleSpec, error)
}

// Creator submits market-creation transactions with explicit nonces.
// Concurrent creations from the same funding account race on nonce
// assignment, so a conflict retries with the next nonce; the retry is a
// mitigation, not a cross-call coordinator.
type Creator struct {
	ledger     domain.Ledger
	classifier SpecClassifier
	policy     retry.Policy
	logger     *slog.Logger
}

func NewCreator(l domain.Ledger, classifier SpecClassifier, logger *slog.Logger) *Creator {
	return &Creator{
		ledger:     l,
		classifier: classifier,
		policy: retry.Policy{
			MaxAttempts: 3,
			Delay:       time.Second,
			Retryable: func(err error) bool {
				return errors.Is(err, domain.ErrNonceConflict)
			},
		},
		logger: logger.With(slog.String("component", "creator")),
	}
}

// Create submits newMarket and classifies the question once the transaction
// is accepted. Classification runs after creation and never undoes or fails
// it: any classifier error is logged and the market id and tx hash are
// returned cleanly. The discrete engine treats a missing spec as an ordinary
// fallback, so an unclassified market still settles.
func (c *Creator) Create(ctx context.Context, question string, duration time.Duration) (uint64, string, error) {
	marketID, err := c.ledger.NextMarketID(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("settle: next market id: %w", err)
	}
	base, err := c.ledger.PendingNonce(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("settle: base nonce: %w", err)
	}

	var txHash string
	err = c.policy.Do(ctx, func(attempt int) error {
		nonce := base + uint64(attempt)
		if attempt > 0 {
			c.logger.WarnContext(ctx, "retrying market creation after nonce conflict",
				slog.Uint64("market_id", marketID),
				slog.Uint64("nonce", nonce),
				slog.Int("attempt", attempt+1),
			)
		}
		var txErr error
		txHash, txErr = c.ledger.CreateMarket(ctx, question, duration, nonce)
		return txErr
	})
	if err != nil {
		return 0, "", fmt.Errorf("settle: create market: %w", err)
	}

	c.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", marketID),
		slog.String("tx_hash", txHash),
	)

	if c.classifier != nil {
		if _, err := c.classifier.Classify(ctx, marketID, question); err != nil {
			c.logger.ErrorContext(ctx, "classification failed after creation",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return marketID, txHash, nil
}
