package domain

import "context"

// QuoteSource produces a Quote for a pair or fails. There is one
// implementation per venue transport (HTTP quote API vs on-chain pool query);
// the transport is selected at configuration-load time, never by runtime type
// branching inside the pipeline.
type QuoteSource interface {
	// Name returns the venue identifier used in Quote.Venue.
	Name() string

	// FetchQuote fetches the venue's current quote for the pair. The caller
	// bounds the call with a per-venue timeout on ctx.
	FetchQuote(ctx context.Context, pair Pair) (Quote, error)
}
