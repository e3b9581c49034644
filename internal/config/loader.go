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
// built-in defaults, applies SOLARB_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SOLARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.KeypairPath, "SOLARB_WALLET_KEYPAIR_PATH")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SOLARB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SOLARB_WALLET_KEY_PASSWORD")

	// ── RPC ──
	setStr(&cfg.RPC.URL, "SOLARB_RPC_URL")
	setStr(&cfg.RPC.WsURL, "SOLARB_RPC_WS_URL")
	setStr(&cfg.RPC.Commitment, "SOLARB_RPC_COMMITMENT")
	setDuration(&cfg.RPC.Timeout, "SOLARB_RPC_TIMEOUT")

	// ── Program ──
	setStr(&cfg.Program.ProgramID, "SOLARB_PROGRAM_ID")
	setFloat64(&cfg.Program.MinSOLBalance, "SOLARB_PROGRAM_MIN_SOL_BALANCE")
	setInt(&cfg.Program.MaxRetries, "SOLARB_PROGRAM_MAX_RETRIES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SOLARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SOLARB_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SOLARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SOLARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SOLARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SOLARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SOLARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SOLARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SOLARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SOLARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SOLARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SOLARB_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SOLARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SOLARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "SOLARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SOLARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SOLARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SOLARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SOLARB_S3_FORCE_PATH_STYLE")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.Interval, "SOLARB_SCHEDULER_INTERVAL")
	setInt(&cfg.Scheduler.MaxConcurrentPairs, "SOLARB_SCHEDULER_MAX_CONCURRENT_PAIRS")
	setDuration(&cfg.Scheduler.FetchTimeout, "SOLARB_SCHEDULER_FETCH_TIMEOUT")
	setDuration(&cfg.Scheduler.CacheTTL, "SOLARB_SCHEDULER_CACHE_TTL")
	setDuration(&cfg.Scheduler.ExecutionTimeout, "SOLARB_SCHEDULER_EXECUTION_TIMEOUT")

	// ── Detector ──
	setFloat64(&cfg.Detector.LiquidityFraction, "SOLARB_DETECTOR_LIQUIDITY_FRACTION")

	// ── Executor ──
	setInt(&cfg.Executor.MaxAttempts, "SOLARB_EXECUTOR_MAX_ATTEMPTS")
	setDuration(&cfg.Executor.BackoffStep, "SOLARB_EXECUTOR_BACKOFF_STEP")
	setDuration(&cfg.Executor.LockTTL, "SOLARB_EXECUTOR_LOCK_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SOLARB_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SOLARB_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SOLARB_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SOLARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SOLARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SOLARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SOLARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLARB_MODE")
	setStr(&cfg.LogLevel, "SOLARB_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
