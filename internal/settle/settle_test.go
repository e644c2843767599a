package settle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/ledger"
)

// fakeLedger is an in-memory stand-in for the chain client.
type fakeLedger struct {
	mu sync.Mutex

	nextID  uint64
	market  domain.Market
	getErr  error
	nonce   uint64
	nonces  []uint64 // nonces seen by CreateMarket
	failing int      // CreateMarket nonce conflicts remaining
	sendErr error

	requested    bool
	reports      [][]byte
	submitted    []domain.SettlementReport
	manualCalls  []uint8
	requestCalls int
}

func (f *fakeLedger) NextMarketID(ctx context.Context) (uint64, error) { return f.nextID, nil }

func (f *fakeLedger) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Market{}, f.getErr
	}
	return f.market, nil
}

func (f *fakeLedger) PendingNonce(ctx context.Context) (uint64, error) { return f.nonce, nil }

func (f *fakeLedger) CreateMarket(ctx context.Context, question string, duration time.Duration, nonce uint64) (string, error) {
	f.nonces = append(f.nonces, nonce)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if f.failing > 0 {
		f.failing--
		return "", fmt.Errorf("send tx: %w", domain.ErrNonceConflict)
	}
	return "0xcreate", nil
}

func (f *fakeLedger) RequestSettlement(ctx context.Context, id uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = true
	f.requestCalls++
	f.market.Status = domain.StatusSettlementRequested
	return "0xrequest", nil
}

func (f *fakeLedger) OnReport(ctx context.Context, metadata, report []byte) (string, error) {
	f.reports = append(f.reports, report)
	return "0xreport", nil
}

func (f *fakeLedger) SubmitReport(ctx context.Context, id uint64, outcomeCode uint8, confidenceBps uint16, responseID string) (string, error) {
	f.submitted = append(f.submitted, domain.SettlementReport{
		MarketID: id, OutcomeCode: outcomeCode, ConfidenceBps: confidenceBps, ResponseID: responseID,
	})
	return "0xsubmit", nil
}

func (f *fakeLedger) SettleManually(ctx context.Context, id uint64, outcomeCode uint8) (string, error) {
	f.manualCalls = append(f.manualCalls, outcomeCode)
	return "0xmanual", nil
}

type fakeDiscrete struct {
	res   domain.ResolutionResult
	calls int
}

func (f *fakeDiscrete) Resolve(ctx context.Context, marketID uint64) domain.ResolutionResult {
	f.calls++
	return f.res
}

type fakeContiguous struct {
	res        domain.ResolutionResult
	calls      int
	consortium bool
}

func (f *fakeContiguous) Resolve(ctx context.Context, question string, consortium bool) domain.ResolutionResult {
	f.calls++
	f.consortium = consortium
	return f.res
}

type fakeAudit struct {
	records []domain.SettlementRecord
}

func (f *fakeAudit) Upsert(ctx context.Context, rec domain.SettlementRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAudit) GetByMarket(ctx context.Context, marketID uint64) (domain.SettlementRecord, error) {
	return domain.SettlementRecord{}, domain.ErrNotFound
}

func (f *fakeAudit) ListRecent(ctx context.Context, limit int) ([]domain.SettlementRecord, error) {
	return f.records, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrchestrator(l domain.Ledger, d DiscreteResolver, c ContiguousResolver, audit domain.SettlementStore) *Orchestrator {
	o := NewOrchestrator(OrchestratorDeps{
		Ledger:     l,
		Discrete:   d,
		Contiguous: c,
		Submitter:  NewSubmitter(l, quiet()),
		Audit:      audit,
		Logger:     quiet(),
	})
	o.pollInterval = time.Millisecond
	o.pollTimeout = 100 * time.Millisecond
	return o
}

func discreteYes() domain.ResolutionResult {
	return domain.ResolutionResult{
		Outcome:       domain.OutcomeYes,
		ConfidenceBps: 10000,
		Method:        domain.MethodDiscrete,
		Evidence:      "value 50000 > target 1",
	}
}

func TestSettleAlreadySettledRejected(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Status: domain.StatusSettled}}
	d := &fakeDiscrete{}
	o := newOrchestrator(l, d, nil, nil)

	_, err := o.Settle(context.Background(), 1, false)

	require.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Zero(t, d.calls)
	assert.Empty(t, l.reports)
}

func TestSettleOpenMarketRequestsSettlementFirst(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Question: "Q?", Status: domain.StatusOpen}}
	o := newOrchestrator(l, &fakeDiscrete{res: discreteYes()}, nil, nil)

	rec, err := o.Settle(context.Background(), 1, false)

	require.NoError(t, err)
	assert.True(t, l.requested)
	assert.Equal(t, domain.OutcomeYes, rec.Outcome)
	assert.Len(t, l.reports, 1)
}

func TestSettleDiscreteWinsOverConsortiumRequest(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Status: domain.StatusSettlementRequested}}
	c := &fakeContiguous{}
	o := newOrchestrator(l, &fakeDiscrete{res: discreteYes()}, c, nil)

	rec, err := o.Settle(context.Background(), 1, true)

	require.NoError(t, err)
	assert.Equal(t, domain.MethodDiscrete, rec.Method)
	assert.Zero(t, c.calls)
}

func TestSettleFallsBackToConsensus(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Question: "Will it rain?", Status: domain.StatusSettlementRequested}}
	d := &fakeDiscrete{res: domain.DiscreteFallback(domain.FallbackContiguousType, "")}
	c := &fakeContiguous{res: domain.ResolutionResult{
		Outcome:       domain.OutcomeNo,
		ConfidenceBps: 7000,
		Method:        domain.MethodConsortium,
		Tally:         domain.VoteTally{Yes: 1, No: 4},
	}}
	audit := &fakeAudit{}
	o := newOrchestrator(l, d, c, audit)

	rec, err := o.Settle(context.Background(), 1, true)

	require.NoError(t, err)
	assert.True(t, c.consortium)
	assert.Equal(t, domain.OutcomeNo, rec.Outcome)
	assert.Equal(t, domain.MethodConsortium, rec.Method)
	// A question that was never discrete is not a fallback settlement.
	assert.False(t, rec.IsFallback)
	require.Len(t, audit.records, 1)
	assert.Equal(t, rec.ResponseID, audit.records[0].ResponseID)
}

func TestSettleCarriesDiscreteFallbackReason(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Question: "Did Arsenal win?", Status: domain.StatusSettlementRequested}}
	d := &fakeDiscrete{res: domain.DiscreteFallback(domain.FallbackTeamNotFound, "no team matching")}
	c := &fakeContiguous{res: domain.ResolutionResult{
		Outcome:       domain.OutcomeYes,
		ConfidenceBps: 8000,
		Method:        domain.MethodConsortium,
	}}
	o := newOrchestrator(l, d, c, nil)

	rec, err := o.Settle(context.Background(), 1, true)

	require.NoError(t, err)
	assert.True(t, rec.IsFallback)
	assert.Equal(t, domain.MethodConsortium, rec.Method)
}

func TestSettleMockPathWhenReasoningUnconfigured(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 1, Status: domain.StatusSettlementRequested}}
	d := &fakeDiscrete{res: domain.DiscreteFallback(domain.FallbackContiguousType, "")}
	o := newOrchestrator(l, d, nil, nil)
	o.randBool = func() bool { return true }

	rec, err := o.Settle(context.Background(), 1, false)

	require.NoError(t, err)
	assert.Equal(t, domain.MethodMock, rec.Method)
	assert.Equal(t, domain.OutcomeYes, rec.Outcome)
	assert.Equal(t, uint16(9999), rec.ConfidenceBps)
}

func TestSettleSubmitsDecodableReport(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 7, Status: domain.StatusSettlementRequested}}
	o := newOrchestrator(l, &fakeDiscrete{res: discreteYes()}, nil, nil)

	rec, err := o.Settle(context.Background(), 7, false)
	require.NoError(t, err)
	require.Len(t, l.reports, 1)

	report, err := ledger.DecodeReport(l.reports[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(7), report.MarketID)
	assert.Equal(t, uint8(2), report.OutcomeCode)
	assert.Equal(t, uint16(10000), report.ConfidenceBps)
	assert.Equal(t, rec.ResponseID, report.ResponseID)
}

type fakeClassifier struct {
	marketID uint64
	question string
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, marketID uint64, question string) (domain.OracleSpec, error) {
	f.marketID = marketID
	f.question = question
	return domain.ContiguousSpec(marketID, question), f.err
}

func TestCreateRetriesOnNonceConflict(t *testing.T) {
	l := &fakeLedger{nextID: 42, nonce: 10, failing: 2}
	cl := &fakeClassifier{}
	c := NewCreator(l, cl, quiet())
	c.policy.Delay = time.Millisecond

	id, tx, err := c.Create(context.Background(), "Will X happen?", time.Hour)

	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "0xcreate", tx)
	assert.Equal(t, []uint64{10, 11, 12}, l.nonces)
	assert.Equal(t, uint64(42), cl.marketID)
}

func TestCreateSucceedsWhenClassificationFails(t *testing.T) {
	l := &fakeLedger{nextID: 42, nonce: 10}
	cl := &fakeClassifier{err: errors.New("persist spec: connection refused")}
	c := NewCreator(l, cl, quiet())

	id, tx, err := c.Create(context.Background(), "Will X happen?", time.Hour)

	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "0xcreate", tx)
	assert.Equal(t, uint64(42), cl.marketID)
}

func TestCreateExhaustsNonceBudget(t *testing.T) {
	l := &fakeLedger{nextID: 42, nonce: 10, failing: 5}
	c := NewCreator(l, nil, quiet())
	c.policy.Delay = time.Millisecond

	_, _, err := c.Create(context.Background(), "Will X happen?", time.Hour)

	require.ErrorIs(t, err, domain.ErrNonceConflict)
	assert.Equal(t, []uint64{10, 11, 12}, l.nonces)
}

func TestCreateAbortsOnOtherError(t *testing.T) {
	l := &fakeLedger{nextID: 42, nonce: 10, sendErr: errors.New("insufficient funds")}
	c := NewCreator(l, nil, quiet())

	_, _, err := c.Create(context.Background(), "Will X happen?", time.Hour)

	require.Error(t, err)
	assert.Len(t, l.nonces, 1)
}

func TestAdminOverrideFromNeedsManual(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 3, Question: "Q?", Status: domain.StatusNeedsManual}}
	audit := &fakeAudit{}
	a := NewAdmin(l, audit, quiet())

	rec, err := a.Override(context.Background(), 3, domain.OutcomeYes, "official announcement")

	require.NoError(t, err)
	assert.Equal(t, []uint8{2}, l.manualCalls)
	assert.Equal(t, uint16(10000), rec.ConfidenceBps)
	assert.True(t, rec.AdminOverride)
	assert.Equal(t, "official announcement", rec.AdminSource)
	require.Len(t, audit.records, 1)
}

func TestAdminOverrideFromOpenRequestsThenSubmits(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 3, Status: domain.StatusOpen}}
	a := NewAdmin(l, nil, quiet())

	_, err := a.Override(context.Background(), 3, domain.OutcomeNo, "source")

	require.NoError(t, err)
	assert.Equal(t, 1, l.requestCalls)
	require.Len(t, l.submitted, 1)
	assert.Equal(t, uint8(1), l.submitted[0].OutcomeCode)
	assert.Equal(t, uint16(10000), l.submitted[0].ConfidenceBps)
}

func TestAdminOverrideFromSettlementRequested(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 3, Status: domain.StatusSettlementRequested}}
	a := NewAdmin(l, nil, quiet())

	_, err := a.Override(context.Background(), 3, domain.OutcomeInconclusive, "source")

	require.NoError(t, err)
	assert.Zero(t, l.requestCalls)
	require.Len(t, l.submitted, 1)
	assert.Equal(t, uint8(3), l.submitted[0].OutcomeCode)
}

func TestAdminOverrideRejections(t *testing.T) {
	l := &fakeLedger{market: domain.Market{ID: 3, Status: domain.StatusSettled}}
	a := NewAdmin(l, nil, quiet())

	_, err := a.Override(context.Background(), 3, domain.OutcomeYes, "source")
	require.ErrorIs(t, err, domain.ErrAlreadySettled)

	_, err = a.Override(context.Background(), 3, domain.OutcomeYes, "")
	require.Error(t, err)

	_, err = a.Override(context.Background(), 3, domain.OutcomeNone, "source")
	require.Error(t, err)
}

func TestClampBps(t *testing.T) {
	assert.Equal(t, uint16(10000), ClampBps(20000))
	assert.Equal(t, uint16(9999), ClampBps(9999))
	assert.Equal(t, uint16(0), ClampBps(0))
}
