// Package oracle classifies market questions into oracle specs at creation
// time.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/reasoning"
)

const classifierInstructions = `You classify prediction-market questions into resolution recipes.
Categories with automated data sources:
  - "crypto": a cryptocurrency USD price (sourceId = coin id, e.g. "bitcoin"; path "<coin id>.usd")
  - "stock": a tokenized stock USD price (sourceId = asset id; path "<asset id>.usd")
  - "currency": a USD exchange rate (sourceId = currency code, e.g. "EUR"; path "rates.<code>")
  - "weather": a city's current temperature in Celsius (sourceId = city name; path "current_condition[0].temp_C")
  - "sports": a team's most recent match result (sourceId = team name; no path or comparator)
If the question compares such a value against a threshold, or asks whether a
team won its last game, answer with type "discrete". Otherwise answer with
type "contiguous" and restate the question as a short summary.
Respond with a single JSON object:
{"type": "discrete" | "contiguous",
 "category": "<category, discrete only>",
 "reason": "<one sentence>",
 "spec": {"sourceId": "...", "path": "...", "comparator": ">|<|>=|<=|==|!=", "target": <number>, "summary": "..."}}`

// Classifier derives an OracleSpec from a market question and persists it.
// Classification is advisory: every failure degrades to a contiguous spec and
// never blocks market creation.
type Classifier struct {
	svc    reasoning.Service
	store  domain.SpecStore
	logger *slog.Logger
}

// NewClassifier creates a classifier over the reasoning service and spec
// store.
func NewClassifier(svc reasoning.Service, store domain.SpecStore, logger *slog.Logger) *Classifier {
	return &Classifier{
		svc:    svc,
		store:  store,
		logger: logger.With(slog.String("component", "classifier")),
	}
}

type classification struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Spec     struct {
		SourceID   string  `json:"sourceId"`
		Path       string  `json:"path"`
		Comparator string  `json:"comparator"`
		Target     float64 `json:"target"`
		Summary    string  `json:"summary"`
	} `json:"spec"`
}

// Classify derives a spec for the question and stores it keyed by market id.
// The returned spec is what was persisted. The only error surfaced is a
// store failure; classifier and parse errors are downgraded to a contiguous
// spec in place.
func (c *Classifier) Classify(ctx context.Context, marketID uint64, question string) (domain.OracleSpec, error) {
	spec, note := c.derive(ctx, marketID, question)
	if note != "" {
		c.logger.InfoContext(ctx, "classification degraded to contiguous",
			slog.Uint64("market_id", marketID),
			slog.String("note", note),
		)
	}
	c.logger.InfoContext(ctx, "question classified",
		slog.Uint64("market_id", marketID),
		slog.String("type", string(spec.Type)),
		slog.String("category", string(spec.Category)),
	)

	if err := c.store.Put(ctx, spec); err != nil {
		return domain.OracleSpec{}, fmt.Errorf("oracle: persist spec for market %d: %w", marketID, err)
	}
	return spec, nil
}

// derive runs the reasoning call and validates its answer. The note return is
// non-empty when the result fell back to contiguous for a reason worth
// logging.
func (c *Classifier) derive(ctx context.Context, marketID uint64, question string) (domain.OracleSpec, string) {
	if c.svc == nil {
		return domain.ContiguousSpec(marketID, question), "reasoning service not configured"
	}

	resp, err := c.svc.Complete(ctx, reasoning.Request{
		Instructions: classifierInstructions,
		Prompt:       question,
	})
	if err != nil {
		return domain.ContiguousSpec(marketID, question), fmt.Sprintf("classifier call failed: %v", err)
	}

	obj, ok := reasoning.ExtractJSON(resp.Text)
	if !ok {
		return domain.ContiguousSpec(marketID, question), "classification failed: no JSON object in response"
	}
	var cl classification
	if err := json.Unmarshal([]byte(obj), &cl); err != nil {
		return domain.ContiguousSpec(marketID, question), fmt.Sprintf("classification failed: %v", err)
	}

	if cl.Type != string(domain.SpecDiscrete) {
		summary := cl.Spec.Summary
		if summary == "" {
			summary = question
		}
		return domain.ContiguousSpec(marketID, summary), ""
	}

	category := domain.Category(cl.Category)
	if !domain.ValidCategory(category) {
		return domain.ContiguousSpec(marketID, question), fmt.Sprintf("classification failed: unknown category %q", cl.Category)
	}
	if cl.Spec.SourceID == "" {
		return domain.ContiguousSpec(marketID, question), "classification failed: discrete spec missing sourceId"
	}
	if category != domain.CategorySports {
		if cl.Spec.Path == "" {
			return domain.ContiguousSpec(marketID, question), "classification failed: discrete spec missing path"
		}
		if _, err := domain.Comparator(cl.Spec.Comparator).Apply(0, 0); err != nil {
			return domain.ContiguousSpec(marketID, question), fmt.Sprintf("classification failed: bad comparator %q", cl.Spec.Comparator)
		}
	}

	return domain.OracleSpec{
		MarketID:   marketID,
		Type:       domain.SpecDiscrete,
		Category:   category,
		SourceID:   cl.Spec.SourceID,
		Path:       cl.Spec.Path,
		Comparator: domain.Comparator(cl.Spec.Comparator),
		Target:     cl.Spec.Target,
		Summary:    cl.Spec.Summary,
		CreatedAt:  time.Now().UTC(),
	}, ""
}
