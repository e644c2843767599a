package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/verdictlabs/oraclebot/internal/blob/s3"
	"github.com/verdictlabs/oraclebot/internal/cache/redis"
	"github.com/verdictlabs/oraclebot/internal/config"
	"github.com/verdictlabs/oraclebot/internal/crypto"
	"github.com/verdictlabs/oraclebot/internal/domain"
	"github.com/verdictlabs/oraclebot/internal/feeds"
	"github.com/verdictlabs/oraclebot/internal/ledger"
	"github.com/verdictlabs/oraclebot/internal/notify"
	"github.com/verdictlabs/oraclebot/internal/oracle"
	"github.com/verdictlabs/oraclebot/internal/reasoning"
	"github.com/verdictlabs/oraclebot/internal/resolver"
	"github.com/verdictlabs/oraclebot/internal/settle"
	"github.com/verdictlabs/oraclebot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// On-chain
	Ledger domain.Ledger

	// Persistence
	Specs       *oracle.CachedSpecs
	Settlements domain.SettlementStore
	Locks       domain.LockManager
	Archiver    domain.EvidenceArchiver

	// Resolution
	Classifier   *oracle.Classifier
	Orchestrator *settle.Orchestrator
	Creator      *settle.Creator
	Admin        *settle.Admin

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signing key and ledger client ---
	key, err := crypto.LoadSigningKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: signing key: %w", err)
	}

	ledgerClient, err := ledger.Dial(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress, key, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: ledger: %w", err)
	}
	closers = append(closers, func() { _ = ledgerClient.Close() })
	deps.Ledger = ledgerClient

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	specStore := postgres.NewSpecStore(pool)
	deps.Settlements = postgres.NewSettlementStore(pool)

	// --- Redis (optional: spec cache + advisory settlement locks) ---
	var specCache domain.SpecCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		specCache = redis.NewSpecCache(redisClient)
		deps.Locks = redis.NewLockManager(redisClient)
	}

	deps.Specs = oracle.NewCachedSpecs(specCache, specStore, logger)

	// --- S3 evidence archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewEvidenceArchiver(s3Client)
	}

	// --- Reasoning service (optional: unset base URL degrades to the
	// contiguous spec fallback and the mock resolution path) ---
	var reasoningSvc reasoning.Service
	if cfg.Reasoning.BaseURL != "" {
		reasoningSvc = reasoning.NewClient(reasoning.ClientConfig{
			BaseURL: cfg.Reasoning.BaseURL,
			APIKey:  cfg.Reasoning.APIKey,
			Model:   cfg.Reasoning.Model,
			Timeout: cfg.Reasoning.Timeout.Duration,
		})
	}

	// --- Data feeds and resolution paths ---
	price := feeds.NewPriceClient(cfg.Feeds.PriceBaseURL)
	rates := feeds.NewExchangeRateClient(cfg.Feeds.ExchangeBaseURL)
	weather := feeds.NewWeatherClient(cfg.Feeds.WeatherBaseURL)
	sports := feeds.NewSportsClient(cfg.Feeds.SportsBaseURL)

	discrete := resolver.NewDiscreteEngine(deps.Specs, price, rates, weather, sports, logger)

	var contiguous settle.ContiguousResolver
	if reasoningSvc != nil {
		contiguous = resolver.NewConsensusEngine(reasoningSvc, logger)
	}

	deps.Classifier = oracle.NewClassifier(reasoningSvc, deps.Specs, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Settlement services ---
	submitter := settle.NewSubmitter(deps.Ledger, logger)
	deps.Creator = settle.NewCreator(deps.Ledger, deps.Classifier, logger)
	deps.Admin = settle.NewAdmin(deps.Ledger, deps.Settlements, logger)
	deps.Orchestrator = settle.NewOrchestrator(settle.OrchestratorDeps{
		Ledger:       deps.Ledger,
		Discrete:     discrete,
		Contiguous:   contiguous,
		Submitter:    submitter,
		Audit:        deps.Settlements,
		Archiver:     deps.Archiver,
		Locks:        deps.Locks,
		Notifier:     deps.Notifier,
		Logger:       logger,
		PollInterval: cfg.Resolver.PollInterval.Duration,
		PollTimeout:  cfg.Resolver.PollTimeout.Duration,
		LockTTL:      cfg.Resolver.LockTTL.Duration,
	})

	return deps, cleanup, nil
}
