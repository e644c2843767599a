// Package notify delivers settlement alerts to operators. Events are
// dispatched to all registered senders (Telegram, Discord) and can be
// filtered by event type so operators receive only the alerts they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// Event types emitted by the settlement flow.
const (
	EventResolved = "settlement.resolved"
	EventFallback = "settlement.fallback"
	EventAdmin    = "settlement.admin"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches settlement events to one or more Senders, filtered by
// an allowed event-type set.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice are forwarded. An empty
// events slice allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// SettlementResolved formats and dispatches the alert for a completed
// settlement attempt.
func (n *Notifier) SettlementResolved(ctx context.Context, rec domain.SettlementRecord) error {
	event := EventResolved
	switch {
	case rec.AdminOverride:
		event = EventAdmin
	case rec.IsFallback:
		event = EventFallback
	}

	title := fmt.Sprintf("Market %d settled: %s", rec.MarketID, strings.ToUpper(rec.Outcome.String()))

	var b strings.Builder
	if rec.Question != "" {
		fmt.Fprintf(&b, "%s\n", rec.Question)
	}
	fmt.Fprintf(&b, "Method: %s | Confidence: %d bps", rec.Method, rec.ConfidenceBps)
	if rec.Method == domain.MethodConsortium {
		fmt.Fprintf(&b, "\nVotes: %d yes / %d no / %d inconclusive",
			rec.Tally.Yes, rec.Tally.No, rec.Tally.Inconclusive)
	}
	if rec.AdminOverride {
		fmt.Fprintf(&b, "\nAdmin override, source: %s", rec.AdminSource)
	}
	if rec.TxHash != "" {
		fmt.Fprintf(&b, "\nTx: %s", rec.TxHash)
	}

	return n.notify(ctx, event, title, b.String())
}

func (n *Notifier) notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch iterates over all senders. Errors from individual senders are
// collected and returned combined; a single sender failure does not prevent
// delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
