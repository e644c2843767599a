// Package config defines the top-level configuration for the oracle bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ORACLEBOT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Reasoning ReasoningConfig `toml:"reasoning"`
	Feeds     FeedsConfig     `toml:"feeds"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Creation  CreationConfig  `toml:"creation"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the funding account credentials used to sign ledger
// transactions.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// LedgerConfig holds the JSON-RPC endpoint and market contract address.
type LedgerConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ContractAddress string `toml:"contract_address"`
}

// ReasoningConfig holds the OpenAI-compatible completion API parameters used
// by the classifier and the judge panel. An empty BaseURL disables the
// reasoning service entirely; classification then degrades to contiguous
// specs and contiguous settlement falls back to the mock resolver.
type ReasoningConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// FeedsConfig holds base URLs for the external data sources the discrete
// resolver queries.
type FeedsConfig struct {
	PriceBaseURL    string `toml:"price_base_url"`
	ExchangeBaseURL string `toml:"exchange_base_url"`
	WeatherBaseURL  string `toml:"weather_base_url"`
	SportsBaseURL   string `toml:"sports_base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional: an empty
// Addr disables spec caching and advisory settlement locks.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for evidence
// archiving.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// CreationConfig holds market creation parameters.
type CreationConfig struct {
	// DefaultDuration is the market lifetime used when a creation request
	// does not specify one.
	DefaultDuration duration `toml:"default_duration"`
}

// ResolverConfig holds settlement run parameters.
type ResolverConfig struct {
	// PollInterval and PollTimeout bound the wait for the ledger to
	// acknowledge a settlement request before reports are accepted.
	PollInterval duration `toml:"poll_interval"`
	PollTimeout  duration `toml:"poll_timeout"`
	// Consortium enables the full five-judge panel by default; individual
	// settle requests can still override it per call.
	Consortium bool `toml:"consortium"`
	// LockTTL is the advisory Redis lock lifetime for a settlement run.
	LockTTL duration `toml:"lock_ttl"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			RPCURL: "http://localhost:8545",
		},
		Reasoning: ReasoningConfig{
			Model:   "gpt-4o-mini",
			Timeout: duration{90 * time.Second},
		},
		Feeds: FeedsConfig{
			PriceBaseURL:    "https://api.coingecko.com/api/v3",
			ExchangeBaseURL: "https://open.er-api.com/v6",
			WeatherBaseURL:  "https://wttr.in",
			SportsBaseURL:   "https://www.thesportsdb.com/api/v1/json/3",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "oraclebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oraclebot-evidence",
			ForcePathStyle: true,
		},
		Creation: CreationConfig{
			DefaultDuration: duration{24 * time.Hour},
		},
		Resolver: ResolverConfig{
			PollInterval: duration{2 * time.Second},
			PollTimeout:  duration{30 * time.Second},
			Consortium:   false,
			LockTTL:      duration{2 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"settlement.resolved", "settlement.fallback", "settlement.admin"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"resolve": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, resolve)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — every mode signs ledger transactions, so one credential
	// source must be present.
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Ledger
	if c.Ledger.RPCURL == "" {
		errs = append(errs, "ledger: rpc_url must not be empty")
	}
	if c.Ledger.ContractAddress == "" {
		errs = append(errs, "ledger: contract_address must not be empty")
	}

	// Reasoning — optional, but a configured endpoint needs a model.
	if c.Reasoning.BaseURL != "" && c.Reasoning.Model == "" {
		errs = append(errs, "reasoning: model must be set when base_url is configured")
	}

	// Feeds
	if c.Feeds.PriceBaseURL == "" {
		errs = append(errs, "feeds: price_base_url must not be empty")
	}
	if c.Feeds.ExchangeBaseURL == "" {
		errs = append(errs, "feeds: exchange_base_url must not be empty")
	}
	if c.Feeds.WeatherBaseURL == "" {
		errs = append(errs, "feeds: weather_base_url must not be empty")
	}
	if c.Feeds.SportsBaseURL == "" {
		errs = append(errs, "feeds: sports_base_url must not be empty")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis — optional, but when configured the pool must be sane.
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Creation
	if c.Creation.DefaultDuration.Duration <= 0 {
		errs = append(errs, "creation: default_duration must be > 0")
	}

	// Resolver
	if c.Resolver.PollInterval.Duration <= 0 {
		errs = append(errs, "resolver: poll_interval must be > 0")
	}
	if c.Resolver.PollTimeout.Duration < c.Resolver.PollInterval.Duration {
		errs = append(errs, "resolver: poll_timeout must be >= poll_interval")
	}
	if c.Resolver.LockTTL.Duration <= 0 {
		errs = append(errs, "resolver: lock_ttl must be > 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
