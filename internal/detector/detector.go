// Package detector identifies cross-venue arbitrage opportunities from a
// quote set. Detection is pure: no I/O, no clocks beyond timestamping the
// result, so it is trivially testable.
package detector

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// Config tunes opportunity sizing.
type Config struct {
	// LiquidityFraction caps the trade size to this fraction of the
	// thinner side's liquidity.
	LiquidityFraction float64
}

// Detector evaluates quote sets against per-pair thresholds.
type Detector struct {
	cfg Config
}

// New creates a Detector. A non-positive LiquidityFraction falls back to 5%.
func New(cfg Config) *Detector {
	if cfg.LiquidityFraction <= 0 {
		cfg.LiquidityFraction = 0.05
	}
	return &Detector{cfg: cfg}
}

// Detect finds the single best opportunity in the quote set, or returns
// (nil, nil) when no quote spread clears the pair's profit threshold.
// Fewer than two quotes cannot form a spread and return
// ErrInsufficientQuotes. Ties on price resolve to the first quote
// encountered, so detection is deterministic for a given input order.
func (d *Detector) Detect(quotes []domain.Quote, pair domain.PairConfig) (*domain.Opportunity, error) {
	if len(quotes) < 2 {
		return nil, domain.ErrInsufficientQuotes
	}

	buy := quotes[0]
	sell := quotes[0]
	for _, q := range quotes[1:] {
		if q.PriceAtoB < buy.PriceAtoB {
			buy = q
		}
		if q.PriceBtoA > sell.PriceBtoA {
			sell = q
		}
	}

	gross := (sell.PriceBtoA - buy.PriceAtoB) / buy.PriceAtoB * 100
	if gross <= 0 {
		return nil, nil
	}

	amount := d.tradeSize(buy, sell, pair)
	if amount == 0 {
		return nil, nil
	}

	fee := buy.Fee + sell.Fee
	net := gross - fee/float64(amount)*100
	if net < pair.MinProfitPercent {
		return nil, nil
	}

	return &domain.Opportunity{
		ID:                 uuid.NewString(),
		Pair:               pair.Pair(),
		BuyVenue:           buy.Venue,
		SellVenue:          sell.Venue,
		Amount:             amount,
		GrossProfitPercent: gross,
		NetProfitPercent:   net,
		MinProfitAbsolute:  pair.MinProfitPercent / 100 * buy.PriceAtoB * float64(amount),
		ExpectedFee:        fee,
		DetectedAt:         time.Now().UTC(),
	}, nil
}

// tradeSize bounds the amount by both sides' liquidity fraction, both
// quotes' per-trade caps, and the pair's configured cap. A zero cap means
// unbounded.
func (d *Detector) tradeSize(buy, sell domain.Quote, pair domain.PairConfig) uint64 {
	size := math.Min(buy.Liquidity, sell.Liquidity) * d.cfg.LiquidityFraction
	if buy.MaxAmount > 0 {
		size = math.Min(size, buy.MaxAmount)
	}
	if sell.MaxAmount > 0 {
		size = math.Min(size, sell.MaxAmount)
	}
	if pair.MaxAmount > 0 {
		size = math.Min(size, pair.MaxAmount)
	}
	if size <= 0 || math.IsNaN(size) {
		return 0
	}
	return uint64(math.Floor(size))
}
