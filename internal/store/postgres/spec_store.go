package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// SpecStore implements domain.SpecStore using PostgreSQL.
type SpecStore struct {
	pool *pgxpool.Pool
}

// NewSpecStore creates a new SpecStore backed by the given connection pool.
func NewSpecStore(pool *pgxpool.Pool) *SpecStore {
	return &SpecStore{pool: pool}
}

// Put stores the spec for its market, replacing any earlier classification.
func (s *SpecStore) Put(ctx context.Context, spec domain.OracleSpec) error {
	const query = `
		INSERT INTO oracle_specs (
			market_id, spec_type, category, source_id, path, comparator,
			target, resolve_at, summary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			spec_type = EXCLUDED.spec_type,
			category = EXCLUDED.category,
			source_id = EXCLUDED.source_id,
			path = EXCLUDED.path,
			comparator = EXCLUDED.comparator,
			target = EXCLUDED.target,
			resolve_at = EXCLUDED.resolve_at,
			summary = EXCLUDED.summary`

	_, err := s.pool.Exec(ctx, query,
		int64(spec.MarketID), string(spec.Type), string(spec.Category),
		spec.SourceID, spec.Path, string(spec.Comparator),
		spec.Target, spec.ResolveAt, spec.Summary,
	)
	if err != nil {
		return fmt.Errorf("postgres: put spec for market %d: %w", spec.MarketID, err)
	}
	return nil
}

// Get loads the spec for a market.
func (s *SpecStore) Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error) {
	const query = `
		SELECT market_id, spec_type, category, source_id, path, comparator,
		       target, resolve_at, summary, created_at
		FROM oracle_specs
		WHERE market_id = $1`

	var (
		spec       domain.OracleSpec
		id         int64
		specType   string
		category   string
		comparator string
	)
	err := s.pool.QueryRow(ctx, query, int64(marketID)).Scan(
		&id, &specType, &category, &spec.SourceID, &spec.Path, &comparator,
		&spec.Target, &spec.ResolveAt, &spec.Summary, &spec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OracleSpec{}, domain.ErrSpecNotFound
	}
	if err != nil {
		return domain.OracleSpec{}, fmt.Errorf("postgres: get spec for market %d: %w", marketID, err)
	}

	spec.MarketID = uint64(id)
	spec.Type = domain.SpecType(specType)
	spec.Category = domain.Category(category)
	spec.Comparator = domain.Comparator(comparator)
	return spec, nil
}
