package domain

import "time"

// Opportunity is a detected profitable buy-low/sell-high combination across
// two venues. It is constructed fresh each cycle and never persisted beyond
// the cycle except by the analytics recorder.
type Opportunity struct {
	ID        string
	Pair      Pair
	BuyVenue  string
	SellVenue string

	// Amount is the trade size in TokenA smallest units, floor-rounded after
	// applying the liquidity-fraction and max-amount bounds.
	Amount uint64

	GrossProfitPercent float64
	NetProfitPercent   float64

	// MinProfitAbsolute is the profit floor in TokenB smallest units that the
	// execution layer must enforce at settlement to guard against slippage
	// between detection and fill.
	MinProfitAbsolute float64

	// ExpectedFee is the combined buy+sell fee in TokenA smallest units.
	ExpectedFee float64

	DetectedAt time.Time
}
