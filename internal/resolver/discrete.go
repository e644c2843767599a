// Package resolver implements the two resolution paths for a settlement
// attempt: the deterministic discrete engine and the judge-panel consensus
// engine.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/feeds"
)

// DataFeed is a whitelisted JSON source keyed by a single descriptor (asset
// id, currency code, city).
type DataFeed interface {
	Fetch(ctx context.Context, key string) (any, error)
}

// SportsFeed is the two-call sports source: team search, then the team's
// most recent events.
type SportsFeed interface {
	SearchTeams(ctx context.Context, name string) ([]feeds.Team, error)
	LastEvents(ctx context.Context, teamID string) ([]feeds.Event, error)
}

// SpecSource is the read side of spec persistence the engine needs.
type SpecSource interface {
	Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error)
}

// DiscreteEngine resolves markets whose oracle spec names a whitelisted data
// source. It never raises past its boundary: every failure path returns a
// typed fallback result with a reason code.
type DiscreteEngine struct {
	specs   SpecSource
	price   DataFeed
	rates   DataFeed
	weather DataFeed
	sports  SportsFeed
	logger  *slog.Logger
}

// NewDiscreteEngine creates a discrete engine over the given spec source and
// feed clients.
func NewDiscreteEngine(specs SpecSource, price, rates, weather DataFeed, sports SportsFeed, logger *slog.Logger) *DiscreteEngine {
	return &DiscreteEngine{
		specs:   specs,
		price:   price,
		rates:   rates,
		weather: weather,
		sports:  sports,
		logger:  logger.With(slog.String("component", "discrete_engine")),
	}
}

// Resolve attempts a deterministic resolution for the market. Successful
// results are always YES or NO with confidence fixed at 10000 basis points;
// deterministic sources never produce Inconclusive.
func (e *DiscreteEngine) Resolve(ctx context.Context, marketID uint64) domain.ResolutionResult {
	spec, err := e.specs.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrSpecNotFound) {
			return domain.DiscreteFallback(domain.FallbackSpecNotFound, "")
		}
		e.logger.WarnContext(ctx, "spec load failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return domain.DiscreteFallback(domain.FallbackUnknown, err.Error())
	}
	if spec.Type != domain.SpecDiscrete {
		return domain.DiscreteFallback(domain.FallbackContiguousType, "")
	}

	var res domain.ResolutionResult
	if spec.Category == domain.CategorySports {
		res = e.resolveSports(ctx, spec)
	} else {
		res = e.resolveValue(ctx, spec)
	}

	if res.IsFallback {
		e.logger.InfoContext(ctx, "discrete resolution fell back",
			slog.Uint64("market_id", marketID),
			slog.String("reason", string(res.FallbackReason)),
		)
	}
	return res
}

// resolveValue fetches the spec's source document, extracts a numeric value
// at the stored path, and applies the stored comparator.
func (e *DiscreteEngine) resolveValue(ctx context.Context, spec domain.OracleSpec) domain.ResolutionResult {
	feed, ok := e.feedFor(spec.Category)
	if !ok {
		return domain.DiscreteFallback(domain.FallbackUnknown, fmt.Sprintf("no feed for category %q", spec.Category))
	}

	doc, err := feed.Fetch(ctx, spec.SourceID)
	if err != nil {
		return domain.DiscreteFallback(domain.FallbackAPIError, err.Error())
	}

	raw, found := Lookup(doc, spec.Path)
	if !found {
		return domain.DiscreteFallback(domain.FallbackNoValue, fmt.Sprintf("path %q not present", spec.Path))
	}
	value, ok := Numeric(raw)
	if !ok {
		return domain.DiscreteFallback(domain.FallbackExtractionError, fmt.Sprintf("value at %q is not numeric: %v", spec.Path, raw))
	}

	answer, err := spec.Comparator.Apply(value, spec.Target)
	if err != nil {
		return domain.DiscreteFallback(domain.FallbackExtractionError, err.Error())
	}

	return discreteAnswer(answer, fmt.Sprintf("%s %s: value %v %s target %v => %v",
		spec.Category, spec.SourceID, value, spec.Comparator, spec.Target, answer))
}

// resolveSports runs the two sequential sports calls. The comparator is not
// used: the extracted win/loss boolean is the answer.
func (e *DiscreteEngine) resolveSports(ctx context.Context, spec domain.OracleSpec) domain.ResolutionResult {
	teams, err := e.sports.SearchTeams(ctx, spec.SourceID)
	if err != nil {
		return domain.DiscreteFallback(domain.FallbackTeamSearchFailed, err.Error())
	}
	if len(teams) == 0 {
		return domain.DiscreteFallback(domain.FallbackTeamNotFound, fmt.Sprintf("no team matching %q", spec.SourceID))
	}
	team := teams[0]

	events, err := e.sports.LastEvents(ctx, team.ID)
	if err != nil {
		return domain.DiscreteFallback(domain.FallbackAPIError, err.Error())
	}
	if len(events) == 0 {
		return domain.DiscreteFallback(domain.FallbackNoRecentGames, fmt.Sprintf("no recent events for %s", team.Name))
	}
	event := events[0]

	home, away, ok := event.Scores()
	if !ok {
		return domain.DiscreteFallback(domain.FallbackExtractionError, fmt.Sprintf("event %s has no final score", event.ID))
	}

	// Case-insensitive substring match assigns the spec's team to the home
	// or away side of the event.
	won := false
	switch {
	case containsFold(event.HomeTeam, spec.SourceID) || containsFold(spec.SourceID, event.HomeTeam):
		won = home > away
	case containsFold(event.AwayTeam, spec.SourceID) || containsFold(spec.SourceID, event.AwayTeam):
		won = away > home
	default:
		return domain.DiscreteFallback(domain.FallbackTeamNotFound,
			fmt.Sprintf("team %q not on either side of event %s", spec.SourceID, event.ID))
	}

	return discreteAnswer(won, fmt.Sprintf("sports %s: %s %d-%d %s => won=%v",
		spec.SourceID, event.HomeTeam, home, away, event.AwayTeam, won))
}

func (e *DiscreteEngine) feedFor(cat domain.Category) (DataFeed, bool) {
	switch cat {
	case domain.CategoryCrypto, domain.CategoryStock:
		return e.price, e.price != nil
	case domain.CategoryCurrency:
		return e.rates, e.rates != nil
	case domain.CategoryWeather:
		return e.weather, e.weather != nil
	default:
		return nil, false
	}
}

// discreteConfidenceBps is the fixed confidence of every deterministic
// resolution.
const discreteConfidenceBps uint16 = 10000

func discreteAnswer(yes bool, evidence string) domain.ResolutionResult {
	outcome := domain.OutcomeNo
	if yes {
		outcome = domain.OutcomeYes
	}
	return domain.ResolutionResult{
		Outcome:       outcome,
		ConfidenceBps: discreteConfidenceBps,
		Method:        domain.MethodDiscrete,
		Evidence:      evidence,
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
