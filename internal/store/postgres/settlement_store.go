package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new SettlementStore backed by the given
// connection pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Upsert writes the audit record for a market. At most one row exists per
// market; a repeated settlement attempt updates it in place.
func (s *SettlementStore) Upsert(ctx context.Context, rec domain.SettlementRecord) error {
	tallyJSON, err := json.Marshal(rec.Tally)
	if err != nil {
		return fmt.Errorf("postgres: marshal tally: %w", err)
	}

	const query = `
		INSERT INTO settlements (
			market_id, question, outcome, confidence_bps, response_id, tx_hash,
			method, is_fallback, tally, evidence_key, admin_override, admin_source,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			confidence_bps = EXCLUDED.confidence_bps,
			response_id = EXCLUDED.response_id,
			tx_hash = EXCLUDED.tx_hash,
			method = EXCLUDED.method,
			is_fallback = EXCLUDED.is_fallback,
			tally = EXCLUDED.tally,
			evidence_key = EXCLUDED.evidence_key,
			admin_override = EXCLUDED.admin_override,
			admin_source = EXCLUDED.admin_source,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		int64(rec.MarketID), rec.Question, int16(rec.Outcome), int32(rec.ConfidenceBps),
		rec.ResponseID, rec.TxHash, string(rec.Method), rec.IsFallback, tallyJSON,
		rec.EvidenceKey, rec.AdminOverride, rec.AdminSource,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert settlement for market %d: %w", rec.MarketID, err)
	}
	return nil
}

// GetByMarket loads the audit record for a market.
func (s *SettlementStore) GetByMarket(ctx context.Context, marketID uint64) (domain.SettlementRecord, error) {
	const query = selectColumns + ` WHERE market_id = $1`

	row := s.pool.QueryRow(ctx, query, int64(marketID))
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SettlementRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SettlementRecord{}, fmt.Errorf("postgres: get settlement for market %d: %w", marketID, err)
	}
	return rec, nil
}

// ListRecent returns the most recently updated records, newest first.
func (s *SettlementStore) ListRecent(ctx context.Context, limit int) ([]domain.SettlementRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = selectColumns + ` ORDER BY updated_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements: %w", err)
	}
	defer rows.Close()

	var recs []domain.SettlementRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list settlements rows: %w", err)
	}
	return recs, nil
}

const selectColumns = `
	SELECT market_id, question, outcome, confidence_bps, response_id, tx_hash,
	       method, is_fallback, tally, evidence_key, admin_override, admin_source,
	       created_at, updated_at
	FROM settlements`

func scanRecord(row pgx.Row) (domain.SettlementRecord, error) {
	var (
		rec        domain.SettlementRecord
		id         int64
		outcome    int16
		confidence int32
		method     string
		tallyJSON  []byte
	)
	err := row.Scan(
		&id, &rec.Question, &outcome, &confidence, &rec.ResponseID, &rec.TxHash,
		&method, &rec.IsFallback, &tallyJSON, &rec.EvidenceKey, &rec.AdminOverride,
		&rec.AdminSource, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.SettlementRecord{}, err
	}

	rec.MarketID = uint64(id)
	rec.Outcome = domain.Outcome(outcome)
	rec.ConfidenceBps = uint16(confidence)
	rec.Method = domain.Method(method)
	if tallyJSON != nil {
		if err := json.Unmarshal(tallyJSON, &rec.Tally); err != nil {
			return domain.SettlementRecord{}, fmt.Errorf("unmarshal tally: %w", err)
		}
	}
	return rec, nil
}
