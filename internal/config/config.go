// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SOLARB_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	RPC       RPCConfig       `toml:"rpc"`
	Program   ProgramConfig   `toml:"program"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Detector  DetectorConfig  `toml:"detector"`
	Executor  ExecutorConfig  `toml:"executor"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Venues    []VenueConfig   `toml:"venue"`
	Pairs     []PairConfig    `toml:"pair"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds Solana keypair credentials.
type WalletConfig struct {
	// KeypairPath points to a plain Solana id.json keypair file.
	KeypairPath string `toml:"keypair_path"`
	// EncryptedKeyPath points to a password-encrypted keypair file produced
	// by the wallet package. Takes precedence over KeypairPath when set.
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// RPCConfig holds Solana RPC endpoint parameters.
type RPCConfig struct {
	URL        string   `toml:"url"`
	WsURL      string   `toml:"ws_url"`
	Commitment string   `toml:"commitment"`
	Timeout    duration `toml:"timeout"`
}

// ProgramConfig holds the on-chain arbitrage program parameters.
type ProgramConfig struct {
	ProgramID string `toml:"program_id"`
	// MinSOLBalance is the minimum fee balance (in SOL) required to start
	// trade mode.
	MinSOLBalance float64 `toml:"min_sol_balance"`
	// MaxRetries is passed through to sendTransaction.
	MaxRetries int `toml:"max_retries"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for analytics.
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

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SchedulerConfig holds cycle loop parameters.
type SchedulerConfig struct {
	// Interval is the fixed delay between cycles.
	Interval duration `toml:"interval"`
	// MaxConcurrentPairs bounds how many pair pipelines run in parallel
	// within one cycle.
	MaxConcurrentPairs int `toml:"max_concurrent_pairs"`
	// FetchTimeout bounds each per-venue quote request.
	FetchTimeout duration `toml:"fetch_timeout"`
	// CacheTTL is the quote cache freshness window.
	CacheTTL duration `toml:"cache_ttl"`
	// ExecutionTimeout bounds a single opportunity execution, retries and
	// confirmation included. Executions run on their own deadline so a
	// scheduler stop never aborts a submission mid-flight.
	ExecutionTimeout duration `toml:"execution_timeout"`
}

// DetectorConfig holds opportunity detection policy.
type DetectorConfig struct {
	// LiquidityFraction caps trade size to this fraction of either side's
	// reported depth. 0.05 means never consume more than 5% in one trade.
	LiquidityFraction float64 `toml:"liquidity_fraction"`
}

// ExecutorConfig holds execution retry policy.
type ExecutorConfig struct {
	// MaxAttempts bounds total submission attempts per opportunity.
	MaxAttempts int `toml:"max_attempts"`
	// BackoffStep is multiplied by the attempt number between retries.
	BackoffStep duration `toml:"backoff_step"`
	// LockTTL is the distributed per-pair lock lifetime.
	LockTTL duration `toml:"lock_ttl"`
}

// ArchiveConfig holds analytics cold-storage parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// VenueConfig describes one trading venue. Type selects the quote transport
// at load time: "api" venues are queried over their HTTP quote endpoint,
// "onchain" venues by reading their pool accounts through the RPC handle.
type VenueConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Enabled bool   `toml:"enabled"`

	// APIURL is the quote API root for api venues, e.g. "https://quote-api.jup.ag/v6".
	APIURL string `toml:"api_url"`

	// Pools maps a pair key ("mintA/mintB") to the venue's pool account for
	// onchain venues.
	Pools map[string]string `toml:"pools"`

	// FeeBps is applied when the venue does not report an absolute fee.
	FeeBps float64 `toml:"fee_bps"`

	// Subscribe enables the WS account feed for this venue's pools.
	Subscribe bool `toml:"subscribe"`
}

// PairConfig describes one monitored token pair.
type PairConfig struct {
	TokenA           string  `toml:"token_a"`
	TokenB           string  `toml:"token_b"`
	MinProfitPercent float64 `toml:"min_profit_percent"`
	// MaxAmount caps trade size in TokenA smallest units; 0 means no ceiling.
	MaxAmount float64 `toml:"max_amount"`
	Enabled   bool    `toml:"enabled"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "3m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "3m".
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
func Defaults() Config {
	return Config{
		RPC: RPCConfig{
			URL:        "https://api.devnet.solana.com",
			WsURL:      "wss://api.devnet.solana.com",
			Commitment: "confirmed",
			Timeout:    duration{30 * time.Second},
		},
		Program: ProgramConfig{
			MinSOLBalance: 0.1,
			MaxRetries:    3,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "solarbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "solarbot-data",
			ForcePathStyle: true,
		},
		Scheduler: SchedulerConfig{
			Interval:           duration{3 * time.Second},
			MaxConcurrentPairs: 4,
			FetchTimeout:       duration{5 * time.Second},
			CacheTTL:           duration{5 * time.Second},
			ExecutionTimeout:   duration{90 * time.Second},
		},
		Detector: DetectorConfig{
			LiquidityFraction: 0.05,
		},
		Executor: ExecutorConfig{
			MaxAttempts: 3,
			BackoffStep: duration{time.Second},
			LockTTL:     duration{30 * time.Second},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"execution_success", "execution_failed"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"trade":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVenueTypes enumerates the accepted quote transports.
var validVenueTypes = map[string]bool{
	"api":     true,
	"onchain": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, trade)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is required for trade mode only; monitor mode never signs.
	if strings.ToLower(c.Mode) == "trade" {
		if c.Wallet.KeypairPath == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either keypair_path or encrypted_key_path must be set for trade mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Program.ProgramID == "" {
			errs = append(errs, "program: program_id is required for trade mode")
		}
	}

	if c.RPC.URL == "" {
		errs = append(errs, "rpc: url must not be empty")
	}
	if c.RPC.Timeout.Duration <= 0 {
		errs = append(errs, "rpc: timeout must be positive")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

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
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	if c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be positive")
	}
	if c.Scheduler.MaxConcurrentPairs < 1 {
		errs = append(errs, "scheduler: max_concurrent_pairs must be >= 1")
	}
	if c.Scheduler.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scheduler: fetch_timeout must be positive")
	}
	if c.Scheduler.ExecutionTimeout.Duration <= 0 {
		errs = append(errs, "scheduler: execution_timeout must be positive")
	}

	if c.Detector.LiquidityFraction <= 0 || c.Detector.LiquidityFraction > 1 {
		errs = append(errs, fmt.Sprintf("detector: liquidity_fraction must be in (0, 1], got %g", c.Detector.LiquidityFraction))
	}

	if c.Executor.MaxAttempts < 1 {
		errs = append(errs, "executor: max_attempts must be >= 1")
	}
	if c.Executor.BackoffStep.Duration < 0 {
		errs = append(errs, "executor: backoff_step must not be negative")
	}

	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venue[%d]: name must not be empty", i))
		}
		if !validVenueTypes[v.Type] {
			errs = append(errs, fmt.Sprintf("venue %q: unknown type %q (valid: api, onchain)", v.Name, v.Type))
		}
		if v.Type == "api" && v.APIURL == "" {
			errs = append(errs, fmt.Sprintf("venue %q: api_url is required for api venues", v.Name))
		}
		if v.Type == "onchain" && len(v.Pools) == 0 {
			errs = append(errs, fmt.Sprintf("venue %q: at least one pool is required for onchain venues", v.Name))
		}
	}

	for i, p := range c.Pairs {
		if p.TokenA == "" || p.TokenB == "" {
			errs = append(errs, fmt.Sprintf("pair[%d]: token_a and token_b must not be empty", i))
			continue
		}
		if p.TokenA == p.TokenB {
			errs = append(errs, fmt.Sprintf("pair %s/%s: tokens must differ", p.TokenA, p.TokenB))
		}
		if p.Enabled && p.MinProfitPercent <= 0 {
			errs = append(errs, fmt.Sprintf("pair %s/%s: min_profit_percent must be > 0", p.TokenA, p.TokenB))
		}
		if p.MaxAmount < 0 {
			errs = append(errs, fmt.Sprintf("pair %s/%s: max_amount must not be negative", p.TokenA, p.TokenB))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EnabledPairs returns the enabled pair configs in file order.
func (c *Config) EnabledPairs() []PairConfig {
	out := make([]PairConfig, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// EnabledVenues returns the enabled venue configs in file order. Order is
// significant: the detector's tie-break is first-encountered, so venue
// iteration order must be deterministic.
func (c *Config) EnabledVenues() []VenueConfig {
	out := make([]VenueConfig, 0, len(c.Venues))
	for _, v := range c.Venues {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}
