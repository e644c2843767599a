package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

type captureSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (c *captureSender) Send(ctx context.Context, title, message string) error {
	if c.err != nil {
		return c.err
	}
	c.titles = append(c.titles, title)
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureSender) Name() string { return c.name }

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSettlementResolvedDispatchesToAllSenders(t *testing.T) {
	a := &captureSender{name: "telegram"}
	b := &captureSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, nil, quiet())

	err := n.SettlementResolved(context.Background(), domain.SettlementRecord{
		MarketID:      12,
		Question:      "Will BTC close above 100k?",
		Outcome:       domain.OutcomeYes,
		ConfidenceBps: 10000,
		Method:        domain.MethodDiscrete,
		TxHash:        "0xabc",
	})

	require.NoError(t, err)
	require.Len(t, a.titles, 1)
	assert.Contains(t, a.titles[0], "Market 12")
	assert.Contains(t, a.titles[0], "YES")
	assert.Contains(t, a.messages[0], "discrete")
	assert.Contains(t, a.messages[0], "0xabc")
	assert.Len(t, b.titles, 1)
}

func TestSettlementResolvedEventFilter(t *testing.T) {
	s := &captureSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventAdmin}, quiet())

	err := n.SettlementResolved(context.Background(), domain.SettlementRecord{
		MarketID: 1,
		Outcome:  domain.OutcomeNo,
		Method:   domain.MethodConsortium,
	})
	require.NoError(t, err)
	assert.Empty(t, s.titles)

	err = n.SettlementResolved(context.Background(), domain.SettlementRecord{
		MarketID:      2,
		Outcome:       domain.OutcomeYes,
		Method:        domain.MethodAdmin,
		AdminOverride: true,
		AdminSource:   "official result",
	})
	require.NoError(t, err)
	require.Len(t, s.titles, 1)
	assert.Contains(t, s.messages[0], "official result")
}

func TestSettlementResolvedConsortiumTally(t *testing.T) {
	s := &captureSender{name: "discord"}
	n := NewNotifier([]Sender{s}, nil, quiet())

	err := n.SettlementResolved(context.Background(), domain.SettlementRecord{
		MarketID: 3,
		Outcome:  domain.OutcomeInconclusive,
		Method:   domain.MethodConsortium,
		Tally:    domain.VoteTally{Yes: 2, No: 2, Inconclusive: 1},
	})

	require.NoError(t, err)
	assert.Contains(t, s.messages[0], "2 yes / 2 no / 1 inconclusive")
}

func TestDispatchCollectsSenderErrors(t *testing.T) {
	bad := &captureSender{name: "telegram", err: errors.New("status 401")}
	good := &captureSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, quiet())

	err := n.SettlementResolved(context.Background(), domain.SettlementRecord{
		MarketID: 4,
		Outcome:  domain.OutcomeYes,
		Method:   domain.MethodMock,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	// The healthy sender still received the alert.
	assert.Len(t, good.titles, 1)
}
