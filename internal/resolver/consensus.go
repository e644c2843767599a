package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/reasoning"
)

// PanelSize is the fixed number of judges in a consortium round.
const PanelSize = 5

const judgeInstructions = `You are a settlement judge for a binary prediction market.
Answer the question with a single JSON object of the form
{"result": "YES" | "NO" | "INCONCLUSIVE", "confidence": <integer 0-10000>}.
Use INCONCLUSIVE when the available evidence does not decide the question.
Respond with the JSON object only.`

// ConsensusEngine resolves contiguous markets by polling a panel of
// independent judges against the same prompt and tallying their votes.
type ConsensusEngine struct {
	svc    reasoning.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewConsensusEngine creates a consensus engine over the reasoning service.
func NewConsensusEngine(svc reasoning.Service, logger *slog.Logger) *ConsensusEngine {
	return &ConsensusEngine{
		svc:    svc,
		logger: logger.With(slog.String("component", "consensus_engine")),
		now:    time.Now,
	}
}

// Resolve runs a full panel when consortium is true, or a single judge whose
// answer passes through unchanged. All judges are dispatched in parallel and
// joined before aggregation; a judge failure becomes an Inconclusive vote
// with zero confidence and never aborts the round.
func (e *ConsensusEngine) Resolve(ctx context.Context, question string, consortium bool) domain.ResolutionResult {
	judges := 1
	if consortium {
		judges = PanelSize
	}

	prompt := fmt.Sprintf("Current time: %s\n\nQuestion: %s", e.now().UTC().Format(time.RFC3339), question)

	votes := make([]domain.ConsensusVote, judges)
	var g errgroup.Group
	for i := 0; i < judges; i++ {
		g.Go(func() error {
			votes[i] = e.askJudge(ctx, i, prompt)
			return nil
		})
	}
	_ = g.Wait() // judges never return errors; failures are scored locally

	if !consortium {
		v := votes[0]
		return domain.ResolutionResult{
			Outcome:       v.Outcome,
			ConfidenceBps: v.ConfidenceBps,
			Method:        domain.MethodConsortium,
			Evidence:      v.RawTrace,
			Tally:         tallyVotes(votes),
		}
	}
	return aggregate(votes)
}

// askJudge is the per-judge error boundary. Anything that goes wrong inside
// it is scored as an Inconclusive vote at zero confidence.
func (e *ConsensusEngine) askJudge(ctx context.Context, index int, prompt string) domain.ConsensusVote {
	vote := domain.ConsensusVote{
		JudgeIndex: index,
		Outcome:    domain.OutcomeInconclusive,
	}

	resp, err := e.svc.Complete(ctx, reasoning.Request{
		Instructions: judgeInstructions,
		Prompt:       prompt,
		WebSearch:    true,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "judge call failed",
			slog.Int("judge", index),
			slog.String("error", err.Error()),
		)
		return vote
	}
	vote.RawTrace = resp.Text

	outcome, confidence, err := parseVerdict(resp.Text)
	if err != nil {
		e.logger.WarnContext(ctx, "judge verdict unparseable",
			slog.Int("judge", index),
			slog.String("error", err.Error()),
		)
		return vote
	}
	vote.Outcome = outcome
	vote.ConfidenceBps = confidence
	return vote
}

type judgeVerdict struct {
	Result     string `json:"result"`
	Confidence int    `json:"confidence"`
}

func parseVerdict(text string) (domain.Outcome, uint16, error) {
	obj, ok := reasoning.ExtractJSON(text)
	if !ok {
		return domain.OutcomeInconclusive, 0, fmt.Errorf("resolver: no JSON object in judge response")
	}
	var v judgeVerdict
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return domain.OutcomeInconclusive, 0, fmt.Errorf("resolver: decode judge verdict: %w", err)
	}

	var outcome domain.Outcome
	switch strings.ToUpper(strings.TrimSpace(v.Result)) {
	case "YES":
		outcome = domain.OutcomeYes
	case "NO":
		outcome = domain.OutcomeNo
	case "INCONCLUSIVE":
		outcome = domain.OutcomeInconclusive
	default:
		return domain.OutcomeInconclusive, 0, fmt.Errorf("resolver: unknown verdict %q", v.Result)
	}

	confidence := v.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 10000 {
		confidence = 10000
	}
	return outcome, uint16(confidence), nil
}

// aggregate tallies the panel. The winning option needs a strict majority of
// the leading count; a shared lead is ambiguity and resolves Inconclusive.
// Confidence is the floor of the mean over every judge, forced zeros included.
func aggregate(votes []domain.ConsensusVote) domain.ResolutionResult {
	tally := tallyVotes(votes)

	var sum int
	for _, v := range votes {
		sum += int(v.ConfidenceBps)
	}
	confidence := uint16(sum / len(votes))

	outcome := domain.OutcomeInconclusive
	switch {
	case tally.Yes > tally.No && tally.Yes > tally.Inconclusive:
		outcome = domain.OutcomeYes
	case tally.No > tally.Yes && tally.No > tally.Inconclusive:
		outcome = domain.OutcomeNo
	case tally.Inconclusive > tally.Yes && tally.Inconclusive > tally.No:
		outcome = domain.OutcomeInconclusive
	}

	return domain.ResolutionResult{
		Outcome:       outcome,
		ConfidenceBps: confidence,
		Method:        domain.MethodConsortium,
		Evidence:      votes[0].RawTrace,
		Tally:         tally,
	}
}

func tallyVotes(votes []domain.ConsensusVote) domain.VoteTally {
	var t domain.VoteTally
	for _, v := range votes {
		switch v.Outcome {
		case domain.OutcomeYes:
			t.Yes++
		case domain.OutcomeNo:
			t.No++
		default:
			t.Inconclusive++
		}
	}
	return t
}
