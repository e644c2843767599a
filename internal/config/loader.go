package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORACLEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORACLEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ORACLEBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ORACLEBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ORACLEBOT_WALLET_KEY_PASSWORD")

	// ── Ledger ──
	setStr(&cfg.Ledger.RPCURL, "ORACLEBOT_LEDGER_RPC_URL")
	setStr(&cfg.Ledger.ContractAddress, "ORACLEBOT_LEDGER_CONTRACT_ADDRESS")

	// ── Reasoning ──
	setStr(&cfg.Reasoning.BaseURL, "ORACLEBOT_REASONING_BASE_URL")
	setStr(&cfg.Reasoning.APIKey, "ORACLEBOT_REASONING_API_KEY")
	setStr(&cfg.Reasoning.Model, "ORACLEBOT_REASONING_MODEL")
	setDuration(&cfg.Reasoning.Timeout, "ORACLEBOT_REASONING_TIMEOUT")

	// ── Feeds ──
	setStr(&cfg.Feeds.PriceBaseURL, "ORACLEBOT_FEEDS_PRICE_BASE_URL")
	setStr(&cfg.Feeds.ExchangeBaseURL, "ORACLEBOT_FEEDS_EXCHANGE_BASE_URL")
	setStr(&cfg.Feeds.WeatherBaseURL, "ORACLEBOT_FEEDS_WEATHER_BASE_URL")
	setStr(&cfg.Feeds.SportsBaseURL, "ORACLEBOT_FEEDS_SPORTS_BASE_URL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ORACLEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ORACLEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ORACLEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ORACLEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ORACLEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ORACLEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORACLEBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ORACLEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORACLEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORACLEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ORACLEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORACLEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORACLEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORACLEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORACLEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORACLEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ORACLEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ORACLEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORACLEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORACLEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ORACLEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORACLEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "ORACLEBOT_S3_FORCE_PATH_STYLE")

	// ── Creation ──
	setDuration(&cfg.Creation.DefaultDuration, "ORACLEBOT_CREATION_DEFAULT_DURATION")

	// ── Resolver ──
	setDuration(&cfg.Resolver.PollInterval, "ORACLEBOT_RESOLVER_POLL_INTERVAL")
	setDuration(&cfg.Resolver.PollTimeout, "ORACLEBOT_RESOLVER_POLL_TIMEOUT")
	setBool(&cfg.Resolver.Consortium, "ORACLEBOT_RESOLVER_CONSORTIUM")
	setDuration(&cfg.Resolver.LockTTL, "ORACLEBOT_RESOLVER_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ORACLEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORACLEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ORACLEBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ORACLEBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORACLEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORACLEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORACLEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORACLEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ORACLEBOT_MODE")
	setStr(&cfg.LogLevel, "ORACLEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
