package domain

import "time"

// Pair identifies an ordered token pair by mint address. TokenA is the input
// token, TokenB the output token; (A, B) and (B, A) are distinct pairs.
type Pair struct {
	TokenA string
	TokenB string
}

// Key returns the canonical cache/lock key for the pair.
func (p Pair) Key() string {
	return p.TokenA + "/" + p.TokenB
}

// String implements fmt.Stringer.
func (p Pair) String() string {
	return p.Key()
}

// Quote is one venue's price snapshot for a pair at fetch time. A Quote is
// immutable once constructed; the aggregator returns copies, never shared
// mutable state.
type Quote struct {
	// Venue is the identifier of the venue that produced this quote.
	Venue string

	// PriceAtoB is the price of one unit of TokenA in TokenB.
	// PriceBtoA is the reverse direction. The two are not required to be
	// exact reciprocals; fees and spread cause divergence.
	PriceAtoB float64
	PriceBtoA float64

	// Liquidity is the venue-reported depth for the pair.
	Liquidity float64

	// MaxAmount is the venue's quoted size ceiling in TokenA smallest units.
	// Zero means the venue reported no ceiling.
	MaxAmount float64

	// Fee is the absolute fee in TokenA smallest units.
	Fee float64

	FetchedAt time.Time
}

// Valid reports whether the quote carries usable prices. Venues returning
// non-positive prices or negative depth are treated as malformed and dropped.
func (q Quote) Valid() bool {
	return q.Venue != "" && q.PriceAtoB > 0 && q.PriceBtoA > 0 && q.Liquidity >= 0 && q.MaxAmount >= 0 && q.Fee >= 0
}

// PairConfig is the static per-pair monitoring configuration. It is loaded
// once at startup and treated as read-only for the run's duration.
type PairConfig struct {
	TokenA           string
	TokenB           string
	MinProfitPercent float64
	// MaxAmount caps the trade size in TokenA smallest units. Zero means no
	// configured ceiling.
	MaxAmount float64
	Enabled   bool
}

// Pair returns the Pair this config monitors.
func (c PairConfig) Pair() Pair {
	return Pair{TokenA: c.TokenA, TokenB: c.TokenB}
}
