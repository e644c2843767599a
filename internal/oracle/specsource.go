package oracle

import (
	"context"
	"log/slog"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// CachedSpecs is a read-through spec source: cache first, then the store,
// backfilling the cache on a miss. Cache failures are logged and degrade to
// store reads.
type CachedSpecs struct {
	cache  domain.SpecCache
	store  domain.SpecStore
	logger *slog.Logger
}

// NewCachedSpecs wraps the store with the cache. A nil cache disables
// caching entirely.
func NewCachedSpecs(cache domain.SpecCache, store domain.SpecStore, logger *slog.Logger) *CachedSpecs {
	return &CachedSpecs{
		cache:  cache,
		store:  store,
		logger: logger.With(slog.String("component", "spec_source")),
	}
}

func (c *CachedSpecs) Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error) {
	if c.cache != nil {
		spec, hit, err := c.cache.Get(ctx, marketID)
		if err != nil {
			c.logger.WarnContext(ctx, "spec cache read failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		} else if hit {
			return spec, nil
		}
	}

	spec, err := c.store.Get(ctx, marketID)
	if err != nil {
		return domain.OracleSpec{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, spec); err != nil {
			c.logger.WarnContext(ctx, "spec cache backfill failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return spec, nil
}

// Put writes through to the store and refreshes the cache.
func (c *CachedSpecs) Put(ctx context.Context, spec domain.OracleSpec) error {
	if err := c.store.Put(ctx, spec); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, spec); err != nil {
			c.logger.WarnContext(ctx, "spec cache write failed",
				slog.Uint64("market_id", spec.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.SpecStore = (*CachedSpecs)(nil)
