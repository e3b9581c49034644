package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/dmarkhas/solarbot/internal/blob/s3"
	"github.com/dmarkhas/solarbot/internal/cache/redis"
	"github.com/dmarkhas/solarbot/internal/config"
	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/notify"
	"github.com/dmarkhas/solarbot/internal/solana"
	"github.com/dmarkhas/solarbot/internal/store/postgres"
	"github.com/dmarkhas/solarbot/internal/venue"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	RPC *solana.Client
	// WS is non-nil only when some venue subscribes to pool accounts.
	WS *solana.WSClient

	QuoteCache  domain.QuoteCache
	LockManager domain.LockManager

	AnalyticsStore domain.AnalyticsStore

	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	Notifier *notify.Notifier

	// Sources are in venue configuration order.
	Sources []domain.QuoteSource

	// Pools maps venue name to pair key to pool account for onchain venues.
	Pools poolTable

	// SubscribedPools maps pool accounts to the pairs quoted from them, for
	// venues with the WS feed enabled.
	SubscribedPools map[string][]domain.Pair
}

// poolTable resolves a venue's pool account for a pair. It satisfies the
// submitter's PoolResolver.
type poolTable map[string]map[string]string

// ResolvePool returns the pool account for the venue and pair, if known.
func (t poolTable) ResolvePool(venueName string, pair domain.Pair) (string, bool) {
	pools, ok := t[venueName]
	if !ok {
		return "", false
	}
	acc, ok := pools[pair.Key()]
	return acc, ok
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Solana RPC ---
	deps.RPC = solana.New(solana.ClientConfig{
		URL:        cfg.RPC.URL,
		Commitment: cfg.RPC.Commitment,
		Timeout:    cfg.RPC.Timeout.Duration,
	})

	// --- Redis: quote cache and distributed pair lock ---
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
	deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Scheduler.CacheTTL.Duration)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- PostgreSQL: analytics history ---
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
	deps.AnalyticsStore = postgres.NewAnalyticsStore(pgClient.Pool())

	// --- S3: analytics cold storage (archive only) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AnalyticsStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Venues ---
	venueCfgs := make([]venue.Config, 0, len(cfg.EnabledVenues()))
	deps.Pools = make(poolTable)
	deps.SubscribedPools = make(map[string][]domain.Pair)
	for _, vc := range cfg.EnabledVenues() {
		venueCfgs = append(venueCfgs, venue.Config{
			Name:   vc.Name,
			Type:   vc.Type,
			APIURL: vc.APIURL,
			Pools:  vc.Pools,
			FeeBps: vc.FeeBps,
		})
		if vc.Type == venue.TransportOnChain {
			deps.Pools[vc.Name] = vc.Pools
			if vc.Subscribe {
				for pairKey, account := range vc.Pools {
					pair, err := parsePairKey(pairKey)
					if err != nil {
						cleanup()
						return nil, nil, fmt.Errorf("wire: venue %q: %w", vc.Name, err)
					}
					deps.SubscribedPools[account] = append(deps.SubscribedPools[account], pair)
				}
			}
		}
	}
	deps.Sources, err = venue.BuildSources(venueCfgs, deps.RPC)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: venues: %w", err)
	}

	if len(deps.SubscribedPools) > 0 {
		deps.WS = solana.NewWSClient(cfg.RPC.WsURL)
		closers = append(closers, func() { _ = deps.WS.Close() })
	}

	return deps, cleanup, nil
}

// parsePairKey splits a "tokenA/tokenB" pool map key back into a Pair.
func parsePairKey(key string) (domain.Pair, error) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			if i == 0 || i == len(key)-1 {
				break
			}
			return domain.Pair{TokenA: key[:i], TokenB: key[i+1:]}, nil
		}
	}
	return domain.Pair{}, fmt.Errorf("malformed pair key %q", key)
}
