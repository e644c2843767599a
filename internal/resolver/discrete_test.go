package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/feeds"
)

type stubSpecs struct {
	spec domain.OracleSpec
	err  error
}

func (s stubSpecs) Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error) {
	return s.spec, s.err
}

type stubFeed struct {
	doc any
	err error
}

func (f stubFeed) Fetch(ctx context.Context, key string) (any, error) {
	return f.doc, f.err
}

type stubSports struct {
	teams      []feeds.Team
	searchErr  error
	events     []feeds.Event
	eventsErr  error
	lastTeamID string
}

func (s *stubSports) SearchTeams(ctx context.Context, name string) ([]feeds.Team, error) {
	return s.teams, s.searchErr
}

func (s *stubSports) LastEvents(ctx context.Context, teamID string) ([]feeds.Event, error) {
	s.lastTeamID = teamID
	return s.events, s.eventsErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(specs SpecSource, price, rates, weather DataFeed, sports SportsFeed) *DiscreteEngine {
	return NewDiscreteEngine(specs, price, rates, weather, sports, discardLogger())
}

func cryptoSpec(cmp domain.Comparator, target float64) domain.OracleSpec {
	return domain.OracleSpec{
		MarketID:   7,
		Type:       domain.SpecDiscrete,
		Category:   domain.CategoryCrypto,
		SourceID:   "bitcoin",
		Path:       "bitcoin.usd",
		Comparator: cmp,
		Target:     target,
	}
}

func TestDiscreteResolvePriceAboveTarget(t *testing.T) {
	doc := map[string]any{"bitcoin": map[string]any{"usd": 50000.0}}
	eng := newEngine(stubSpecs{spec: cryptoSpec(">", 1)}, stubFeed{doc: doc}, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.False(t, res.IsFallback)
	assert.Equal(t, domain.OutcomeYes, res.Outcome)
	assert.Equal(t, uint16(10000), res.ConfidenceBps)
	assert.Equal(t, domain.MethodDiscrete, res.Method)
	assert.NotEmpty(t, res.Evidence)
}

func TestDiscreteResolveComparators(t *testing.T) {
	tests := []struct {
		name   string
		cmp    domain.Comparator
		target float64
		value  float64
		want   domain.Outcome
	}{
		{"greater true", ">", 100, 150, domain.OutcomeYes},
		{"greater false", ">", 100, 50, domain.OutcomeNo},
		{"less true", "<", 100, 50, domain.OutcomeYes},
		{"gte boundary", ">=", 100, 100, domain.OutcomeYes},
		{"lte boundary", "<=", 100, 100, domain.OutcomeYes},
		{"equal false", "==", 100, 99, domain.OutcomeNo},
		{"not equal true", "!=", 100, 99, domain.OutcomeYes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := map[string]any{"bitcoin": map[string]any{"usd": tt.value}}
			eng := newEngine(stubSpecs{spec: cryptoSpec(tt.cmp, tt.target)}, stubFeed{doc: doc}, nil, nil, nil)

			res := eng.Resolve(context.Background(), 7)

			require.False(t, res.IsFallback)
			assert.Equal(t, tt.want, res.Outcome)
		})
	}
}

func TestDiscreteResolveSpecNotFound(t *testing.T) {
	eng := newEngine(stubSpecs{err: domain.ErrSpecNotFound}, nil, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.True(t, res.IsFallback)
	assert.Equal(t, domain.FallbackSpecNotFound, res.FallbackReason)
	assert.Equal(t, domain.OutcomeNone, res.Outcome)
}

func TestDiscreteResolveContiguousSpec(t *testing.T) {
	spec := domain.ContiguousSpec(7, "will it rain tomorrow")
	eng := newEngine(stubSpecs{spec: spec}, nil, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.True(t, res.IsFallback)
	assert.Equal(t, domain.FallbackContiguousType, res.FallbackReason)
}

func TestDiscreteResolveFeedError(t *testing.T) {
	eng := newEngine(stubSpecs{spec: cryptoSpec(">", 1)}, stubFeed{err: errors.New("status 429")}, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.True(t, res.IsFallback)
	assert.Equal(t, domain.FallbackAPIError, res.FallbackReason)
	assert.Contains(t, res.Evidence, "429")
}

func TestDiscreteResolveMissingPath(t *testing.T) {
	doc := map[string]any{"ethereum": map[string]any{"usd": 3000.0}}
	eng := newEngine(stubSpecs{spec: cryptoSpec(">", 1)}, stubFeed{doc: doc}, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.True(t, res.IsFallback)
	assert.Equal(t, domain.FallbackNoValue, res.FallbackReason)
}

func TestDiscreteResolveNonNumericValue(t *testing.T) {
	doc := map[string]any{"bitcoin": map[string]any{"usd": "unavailable"}}
	eng := newEngine(stubSpecs{spec: cryptoSpec(">", 1)}, stubFeed{doc: doc}, nil, nil, nil)

	res := eng.Resolve(context.Background(), 7)

	require.True(t, res.IsFallback)
	assert.Equal(t, domain.FallbackExtractionError, res.FallbackReason)
}

func TestDiscreteResolveCurrencyPath(t *testing.T) {
	spec := domain.OracleSpec{
		MarketID:   9,
		Type:       domain.SpecDiscrete,
		Category:   domain.CategoryCurrency,
		SourceID:   "EUR",
		Path:       "rates.EUR",
		Comparator: "<",
		Target:     1.0,
	}
	doc := map[string]any{"rates": map[string]any{"EUR": 0.91}}
	eng := newEngine(stubSpecs{spec: spec}, nil, stubFeed{doc: doc}, nil, nil)

	res := eng.Resolve(context.Background(), 9)

	require.False(t, res.IsFallback)
	assert.Equal(t, domain.OutcomeYes, res.Outcome)
}

func sportsSpec(team string) domain.OracleSpec {
	return domain.OracleSpec{
		MarketID: 11,
		Type:     domain.SpecDiscrete,
		Category: domain.CategorySports,
		SourceID: team,
	}
}

func TestDiscreteResolveSportsHomeWin(t *testing.T) {
	sports := &stubSports{
		teams: []feeds.Team{{ID: "133604", Name: "Arsenal"}},
		events: []feeds.Event{{
			ID: "e1", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			HomeScore: "2", AwayScore: "1",
		}},
	}
	eng := newEngine(stubSpecs{spec: sportsSpec("Arsenal")}, nil, nil, nil, sports)

	res := eng.Resolve(context.Background(), 11)

	require.False(t, res.IsFallback)
	assert.Equal(t, domain.OutcomeYes, res.Outcome)
	assert.Equal(t, uint16(10000), res.ConfidenceBps)
	assert.Equal(t, "133604", sports.lastTeamID)
}

func TestDiscreteResolveSportsAwayLoss(t *testing.T) {
	sports := &stubSports{
		teams: []feeds.Team{{ID: "133604", Name: "Arsenal"}},
		events: []feeds.Event{{
			ID: "e1", HomeTeam: "Chelsea", AwayTeam: "Arsenal",
			HomeScore: "3", AwayScore: "0",
		}},
	}
	eng := newEngine(stubSpecs{spec: sportsSpec("Arsenal")}, nil, nil, nil, sports)

	res := eng.Resolve(context.Background(), 11)

	require.False(t, res.IsFallback)
	assert.Equal(t, domain.OutcomeNo, res.Outcome)
}

func TestDiscreteResolveSportsFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		sports *stubSports
		want   domain.FallbackReason
	}{
		{
			"search error",
			&stubSports{searchErr: errors.New("timeout")},
			domain.FallbackTeamSearchFailed,
		},
		{
			"no teams",
			&stubSports{teams: nil},
			domain.FallbackTeamNotFound,
		},
		{
			"events error",
			&stubSports{
				teams:     []feeds.Team{{ID: "1", Name: "Arsenal"}},
				eventsErr: errors.New("status 500"),
			},
			domain.FallbackAPIError,
		},
		{
			"no recent games",
			&stubSports{teams: []feeds.Team{{ID: "1", Name: "Arsenal"}}},
			domain.FallbackNoRecentGames,
		},
		{
			"unfinished fixture",
			&stubSports{
				teams: []feeds.Team{{ID: "1", Name: "Arsenal"}},
				events: []feeds.Event{{
					ID: "e1", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
				}},
			},
			domain.FallbackExtractionError,
		},
		{
			"team on neither side",
			&stubSports{
				teams: []feeds.Team{{ID: "1", Name: "Arsenal"}},
				events: []feeds.Event{{
					ID: "e1", HomeTeam: "Liverpool", AwayTeam: "Chelsea",
					HomeScore: "1", AwayScore: "0",
				}},
			},
			domain.FallbackTeamNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newEngine(stubSpecs{spec: sportsSpec("Arsenal")}, nil, nil, nil, tt.sports)

			res := eng.Resolve(context.Background(), 11)

			require.True(t, res.IsFallback)
			assert.Equal(t, tt.want, res.FallbackReason)
		})
	}
}
