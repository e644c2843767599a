package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// Specs are immutable once written, so a long TTL is safe; the TTL exists
// only to reclaim keys after markets settle.
const specTTL = 24 * time.Hour

// SpecCache implements domain.SpecCache using JSON-serialized specs under
// spec:{marketId} keys.
type SpecCache struct {
	rdb *redis.Client
}

// NewSpecCache creates a SpecCache backed by the given Client.
func NewSpecCache(c *Client) *SpecCache {
	return &SpecCache{rdb: c.Underlying()}
}

func specKey(marketID uint64) string {
	return "spec:" + strconv.FormatUint(marketID, 10)
}

// Get retrieves the cached spec for a market. The boolean reports a cache
// hit; a miss is not an error.
func (sc *SpecCache) Get(ctx context.Context, marketID uint64) (domain.OracleSpec, bool, error) {
	data, err := sc.rdb.Get(ctx, specKey(marketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OracleSpec{}, false, nil
		}
		return domain.OracleSpec{}, false, fmt.Errorf("redis: get spec for market %d: %w", marketID, err)
	}

	var spec domain.OracleSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return domain.OracleSpec{}, false, fmt.Errorf("redis: unmarshal spec for market %d: %w", marketID, err)
	}
	return spec, true, nil
}

// Set stores the spec for its market.
func (sc *SpecCache) Set(ctx context.Context, spec domain.OracleSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("redis: marshal spec for market %d: %w", spec.MarketID, err)
	}
	if err := sc.rdb.Set(ctx, specKey(spec.MarketID), data, specTTL).Err(); err != nil {
		return fmt.Errorf("redis: set spec for market %d: %w", spec.MarketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SpecCache = (*SpecCache)(nil)
