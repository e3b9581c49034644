package venue

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/solana"
)

// Pool account layout offsets for the constant-product pool state we read.
// Reserves are little-endian u64s at fixed positions after the account
// discriminator and mint pubkeys.
const (
	poolReserveAOffset = 72
	poolReserveBOffset = 80
	poolMinAccountLen  = 88
)

// OnChainSource derives quotes from pool reserve accounts read over RPC.
type OnChainSource struct {
	name   string
	rpc    *solana.Client
	pools  map[string]string
	feeBps float64
}

// NewOnChainSource creates an OnChainSource over the given pool accounts.
// pools maps pair keys ("mintA/mintB") to pool state accounts.
func NewOnChainSource(name string, rpc *solana.Client, pools map[string]string, feeBps float64) *OnChainSource {
	return &OnChainSource{
		name:   name,
		rpc:    rpc,
		pools:  pools,
		feeBps: feeBps,
	}
}

// Name returns the venue identifier.
func (s *OnChainSource) Name() string {
	return s.name
}

// PoolAccount returns the pool state account serving the pair, if any.
func (s *OnChainSource) PoolAccount(pair domain.Pair) (string, bool) {
	acc, ok := s.pools[pair.Key()]
	return acc, ok
}

// FetchQuote reads the pool's reserves and derives spot prices for both
// directions. Liquidity is reported as the TokenA-side reserve.
func (s *OnChainSource) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	account, ok := s.pools[pair.Key()]
	if !ok {
		return domain.Quote{}, fmt.Errorf("venue %s: no pool for pair %s: %w", s.name, pair, domain.ErrNotFound)
	}

	info, err := s.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue %s: fetch pool %s: %w", s.name, account, err)
	}

	reserveA, reserveB, err := parseReserves(info.Data)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue %s: pool %s: %w", s.name, account, err)
	}
	if reserveA == 0 || reserveB == 0 {
		return domain.Quote{}, fmt.Errorf("venue %s: pool %s has empty reserves: %w", s.name, account, domain.ErrMalformedQuote)
	}

	priceAtoB := float64(reserveB) / float64(reserveA)
	priceBtoA := float64(reserveA) / float64(reserveB)

	fee := 0.0
	if s.feeBps > 0 {
		fee = float64(probeAmount) * s.feeBps / 10_000
	}

	q := domain.Quote{
		Venue:     s.name,
		PriceAtoB: priceAtoB,
		PriceBtoA: priceBtoA,
		Liquidity: float64(reserveA),
		MaxAmount: 0,
		Fee:       fee,
		FetchedAt: time.Now().UTC(),
	}
	if !q.Valid() {
		return domain.Quote{}, fmt.Errorf("venue %s: %w", s.name, domain.ErrMalformedQuote)
	}
	return q, nil
}

// parseReserves decodes the base64 account data and extracts both reserves.
func parseReserves(data string) (uint64, uint64, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, 0, fmt.Errorf("decode account data: %w", err)
	}
	if len(raw) < poolMinAccountLen {
		return 0, 0, fmt.Errorf("account data too short (%d bytes): %w", len(raw), domain.ErrMalformedQuote)
	}
	reserveA := binary.LittleEndian.Uint64(raw[poolReserveAOffset:])
	reserveB := binary.LittleEndian.Uint64(raw[poolReserveBOffset:])
	return reserveA, reserveB, nil
}

// Compile-time interface check.
var _ domain.QuoteSource = (*OnChainSource)(nil)
