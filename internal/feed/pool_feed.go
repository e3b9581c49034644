// Package feed keeps the quote cache honest between poll cycles. It
// subscribes to pool state accounts over the Solana websocket API and
// invalidates a pair's cached quotes the moment one of its pools changes,
// so the next cycle fetches live prices instead of serving a stale set.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/solana"
)

const reconnectDelay = 5 * time.Second

// PoolFeed watches pool accounts and invalidates cached quotes on change.
type PoolFeed struct {
	ws     *solana.WSClient
	cache  domain.QuoteCache
	pairs  map[string][]domain.Pair // pool account -> pairs quoted from it
	logger *slog.Logger
}

// New creates a PoolFeed. pairsByAccount maps each pool state account to
// the pairs whose quotes derive from it.
func New(ws *solana.WSClient, cache domain.QuoteCache, pairsByAccount map[string][]domain.Pair, logger *slog.Logger) *PoolFeed {
	return &PoolFeed{
		ws:     ws,
		cache:  cache,
		pairs:  pairsByAccount,
		logger: logger.With("component", "feed"),
	}
}

// Run connects, subscribes to every pool account, and blocks until ctx is
// cancelled. Connection loss triggers a reconnect with a fixed delay; the
// websocket client restores subscriptions on reconnect.
func (f *PoolFeed) Run(ctx context.Context) error {
	if len(f.pairs) == 0 {
		f.logger.Info("no pool accounts configured, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	f.ws.OnAccountChange(f.onChange)

	for {
		if err := f.connect(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.logger.Warn("feed connect failed", "error", err)
		} else {
			f.logger.Info("feed connected", "accounts", len(f.pairs))
			// Block until the connection drops or we are told to stop.
			select {
			case <-ctx.Done():
				_ = f.ws.Close()
				return ctx.Err()
			case <-f.ws.Disconnected():
				f.logger.Warn("feed connection lost, reconnecting")
			}
		}

		select {
		case <-ctx.Done():
			_ = f.ws.Close()
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *PoolFeed) connect(ctx context.Context) error {
	if err := f.ws.Connect(ctx); err != nil {
		return err
	}
	for account := range f.pairs {
		if err := f.ws.SubscribeAccount(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

// onChange invalidates every pair quoted from the changed pool account.
func (f *PoolFeed) onChange(account string) {
	pairs, ok := f.pairs[account]
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, pair := range pairs {
		if err := f.cache.Invalidate(ctx, pair); err != nil {
			f.logger.Warn("cache invalidation failed", "pair", pair.Key(), "error", err)
			continue
		}
		f.logger.Debug("quotes invalidated", "pair", pair.Key(), "account", account)
	}
}
