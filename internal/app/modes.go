package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verdictlabs/oraclebot/internal/server"
	"github.com/verdictlabs/oraclebot/internal/server/handler"
)

// shutdownGrace bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// ServerMode starts the HTTP API and blocks until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.Server.Enabled {
		return fmt.Errorf("app: server mode requires server.enabled = true")
	}

	a.logger.InfoContext(ctx, "starting server mode",
		slog.Int("port", a.cfg.Server.Port),
	)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Markets: handler.NewMarketHandler(
			deps.Creator,
			deps.Ledger,
			deps.Specs,
			a.cfg.Creation.DefaultDuration.Duration,
			a.logger,
		),
		Settlements: handler.NewSettlementHandler(deps.Orchestrator, deps.Settlements, a.logger),
		Admin:       handler.NewAdminHandler(deps.Admin, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ResolveMode runs a single settlement attempt for the given market and exits.
func (a *App) ResolveMode(ctx context.Context, deps *Dependencies, marketID uint64) error {
	if marketID == 0 {
		return fmt.Errorf("app: resolve mode requires a market id (use -market)")
	}

	a.logger.InfoContext(ctx, "starting resolve mode",
		slog.Uint64("market_id", marketID),
		slog.Bool("consortium", a.cfg.Resolver.Consortium),
	)

	record, err := deps.Orchestrator.Settle(ctx, marketID, a.cfg.Resolver.Consortium)
	if err != nil {
		return fmt.Errorf("app: resolve market %d: %w", marketID, err)
	}

	a.logger.InfoContext(ctx, "settlement submitted",
		slog.Uint64("market_id", record.MarketID),
		slog.String("outcome", record.Outcome.String()),
		slog.Int("confidence_bps", int(record.ConfidenceBps)),
		slog.String("method", string(record.Method)),
		slog.Bool("is_fallback", record.IsFallback),
		slog.String("tx_hash", record.TxHash),
		slog.String("response_id", record.ResponseID),
	)
	return nil
}
