package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/reasoning"
)

type fakeService struct {
	text string
	err  error
}

func (f fakeService) Complete(ctx context.Context, req reasoning.Request) (reasoning.Response, error) {
	if f.err != nil {
		return reasoning.Response{}, f.err
	}
	return reasoning.Response{Text: f.text}, nil
}

type memSpecStore struct {
	specs map[uint64]domain.OracleSpec
	err   error
}

func newMemSpecStore() *memSpecStore {
	return &memSpecStore{specs: map[uint64]domain.OracleSpec{}}
}

func (s *memSpecStore) Put(ctx context.Context, spec domain.OracleSpec) error {
	if s.err != nil {
		return s.err
	}
	s.specs[spec.MarketID] = spec
	return nil
}

func (s *memSpecStore) Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error) {
	spec, ok := s.specs[marketID]
	if !ok {
		return domain.OracleSpec{}, domain.ErrSpecNotFound
	}
	return spec, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyDiscreteCrypto(t *testing.T) {
	store := newMemSpecStore()
	svc := fakeService{text: "```json\n" + `{
		"type": "discrete",
		"category": "crypto",
		"reason": "price threshold question",
		"spec": {"sourceId": "bitcoin", "path": "bitcoin.usd", "comparator": ">", "target": 100000}
	}` + "\n```"}
	c := NewClassifier(svc, store, testLogger())

	spec, err := c.Classify(context.Background(), 42, "Will Bitcoin trade above $100,000?")
	require.NoError(t, err)

	assert.Equal(t, domain.SpecDiscrete, spec.Type)
	assert.Equal(t, domain.CategoryCrypto, spec.Category)
	assert.Equal(t, "bitcoin", spec.SourceID)
	assert.Equal(t, "bitcoin.usd", spec.Path)
	assert.Equal(t, domain.CompareGT, spec.Comparator)
	assert.Equal(t, float64(100000), spec.Target)
	assert.Equal(t, spec, store.specs[42])
}

func TestClassifyContiguous(t *testing.T) {
	store := newMemSpecStore()
	svc := fakeService{text: `{"type": "contiguous", "reason": "subjective", "spec": {"summary": "Will it rain in London tomorrow?"}}`}
	c := NewClassifier(svc, store, testLogger())

	spec, err := c.Classify(context.Background(), 7, "Will it rain tomorrow?")
	require.NoError(t, err)

	assert.Equal(t, domain.SpecContiguous, spec.Type)
	assert.Equal(t, "Will it rain in London tomorrow?", spec.Summary)
}

func TestClassifyDegradesToContiguous(t *testing.T) {
	tests := []struct {
		name string
		svc  reasoning.Service
	}{
		{"service error", fakeService{err: errors.New("status 503")}},
		{"no json", fakeService{text: "I cannot classify this question."}},
		{"bad category", fakeService{text: `{"type": "discrete", "category": "astrology", "spec": {"sourceId": "mars"}}`}},
		{"missing sourceId", fakeService{text: `{"type": "discrete", "category": "crypto", "spec": {"path": "x.usd", "comparator": ">"}}`}},
		{"bad comparator", fakeService{text: `{"type": "discrete", "category": "crypto", "spec": {"sourceId": "bitcoin", "path": "bitcoin.usd", "comparator": "~"}}`}},
		{"unconfigured", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemSpecStore()
			c := NewClassifier(tt.svc, store, testLogger())

			spec, err := c.Classify(context.Background(), 3, "Some question?")
			require.NoError(t, err)

			assert.Equal(t, domain.SpecContiguous, spec.Type)
			assert.Equal(t, "Some question?", spec.Summary)
			assert.Contains(t, store.specs, uint64(3))
		})
	}
}

func TestClassifySportsNeedsNoComparator(t *testing.T) {
	store := newMemSpecStore()
	svc := fakeService{text: `{"type": "discrete", "category": "sports", "reason": "match result", "spec": {"sourceId": "Arsenal"}}`}
	c := NewClassifier(svc, store, testLogger())

	spec, err := c.Classify(context.Background(), 9, "Did Arsenal win their last game?")
	require.NoError(t, err)

	assert.Equal(t, domain.CategorySports, spec.Category)
	assert.Equal(t, "Arsenal", spec.SourceID)
}

func TestClassifyStoreFailureSurfaces(t *testing.T) {
	store := newMemSpecStore()
	store.err = errors.New("connection refused")
	c := NewClassifier(nil, store, testLogger())

	_, err := c.Classify(context.Background(), 5, "Some question?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market 5")
}
